package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var retrieveLimit int

func init() {
	cmd := &cobra.Command{
		Use:   "retrieve <query>...",
		Short: "Search active memories",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRetrieve,
	}
	cmd.Flags().IntVarP(&retrieveLimit, "limit", "n", 0, "Maximum results (default from config)")
	RootCmd.AddCommand(cmd)
}

func runRetrieve(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.close()

	limit := retrieveLimit
	if limit <= 0 {
		limit = a.cfg.Retrieval.DefaultLimit
	}

	hits, err := a.retriever.Retrieve(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		exitErr("retrieve", err)
	}
	printJSON(hits)
}
