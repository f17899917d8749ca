package cli

import (
	"github.com/spf13/cobra"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show memory bank statistics and rollup watermarks",
		Run:   runStatus,
	}
	RootCmd.AddCommand(cmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.close()

	ctx := cmd.Context()
	stats, err := a.store.Stats(ctx)
	if err != nil {
		exitErr("stats", err)
	}
	state, err := a.states.Load(ctx)
	if err != nil {
		exitErr("load state", err)
	}

	printJSON(struct {
		Bank  *storage.BankStats `json:"bank"`
		State *types.RollupState `json:"state"`
	}{stats, state})
}
