package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/pkg/types"
)

var ingestSession string

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Append session narrative to today's daily document",
		Long: "Reads narrative content from a file (or stdin when omitted) and\n" +
			"appends it to the current day's document. A --session id makes the\n" +
			"ingestion idempotent: a session already recorded is skipped.",
		Args: cobra.MaximumNArgs(1),
		Run:  runIngest,
	}
	cmd.Flags().StringVar(&ingestSession, "session", "", "Session id for duplicate detection")
	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.close()

	ctx := cmd.Context()

	var content []byte
	if len(args) == 1 {
		content, err = os.ReadFile(args[0])
	} else {
		content, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}
	if len(content) == 0 {
		exitErr("ingest", fmt.Errorf("no content to ingest"))
	}

	state, err := a.states.Load(ctx)
	if err != nil {
		exitErr("load state", err)
	}
	if ingestSession != "" && state.LastSummarizedSession == ingestSession {
		a.logger.Info("session already ingested", zap.String("session", ingestSession))
		return
	}

	today := types.KeyFor(types.LevelDaily, time.Now().UTC())
	section := string(content)
	if ingestSession != "" {
		section = fmt.Sprintf("<!-- session:%s -->\n\n%s", ingestSession, section)
	}
	if err := a.periods.Append(ctx, types.LevelDaily, today, section); err != nil {
		exitErr("append daily document", err)
	}

	if ingestSession != "" {
		state.LastSummarizedSession = ingestSession
		state.UpdatedAt = time.Now().UTC()
		if err := a.states.Save(ctx, state); err != nil {
			exitErr("save state", err)
		}
	}
	fmt.Printf("ingested %d bytes into %s\n", len(content), today)
}
