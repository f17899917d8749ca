package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit the workspace for integrity violations",
		Run:   runCheck,
	}
	RootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.close()

	report, err := a.checker.Check(cmd.Context())
	if err != nil {
		exitErr("integrity check", err)
	}
	printJSON(report)
	if !report.OK() {
		fmt.Fprintln(os.Stderr, "integrity check failed")
		os.Exit(1)
	}
}
