package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/server"
)

var checkInterval time.Duration

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine: REST API plus periodic catch-up passes",
		Run:   runServe,
	}
	cmd.Flags().DurationVar(&checkInterval, "check-interval", 30*time.Minute,
		"How often to run a catch-up pass (0 disables the internal trigger)")
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if checkInterval > 0 {
		go catchUpLoop(ctx, a, checkInterval)
	}

	if !a.cfg.Features.EnableREST {
		a.logger.Info("rest api disabled, running catch-up loop only")
		<-ctx.Done()
		return
	}

	srv := server.New(a.sched, a.executor, a.retriever, a.checker, a.store, a.states, server.Options{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		RateLimitRPS: a.cfg.Server.RateLimitRPS,
	}, a.logger)
	if err := srv.Start(ctx); err != nil {
		exitErr("serve", err)
	}
}

// catchUpLoop runs one catch-up pass per tick. Each pass drains at most
// one due period per level; a backlog clears across successive ticks.
func catchUpLoop(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := runCatchUpPass(ctx, a); err != nil {
				a.logger.Error("catch-up pass failed", zap.Error(err))
			}
		}
	}
}
