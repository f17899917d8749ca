package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "archive <memory-id>",
		Short: "Retire an active memory from retrieval (kept for audit)",
		Args:  cobra.ExactArgs(1),
		Run:   runArchive,
	}
	RootCmd.AddCommand(cmd)
}

func runArchive(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.close()

	id := args[0]
	if err := a.store.Archive(cmd.Context(), id); err != nil {
		exitErr("archive", err)
	}
	fmt.Printf("archived %s\n", id)
}
