// Command tracker runs the rendezvous service: a membership directory
// peers JOIN/KEEPALIVE/LEAVE against, with no ledger state of its own.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/songledger/songledger/app/services/tracker"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()
	sugar := log.Sugar()

	if err := run(sugar); err != nil {
		sugar.Errorw("startup", "error", err)
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	root := &cobra.Command{
		Use:   "tracker",
		Short: "run the song-ledger rendezvous tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTracker(log)
		},
	}
	return root.Execute()
}

func runTracker(log *zap.SugaredLogger) error {
	var cfg tracker.Config
	help, err := conf.Parse("TRACKER", &cfg)
	if err != nil {
		if err == conf.ErrHelpWanted {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Infow("startup", "listen_addr", cfg.Web.ListenAddr)

	t := tracker.New(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- t.Listen(ctx, cfg.Web.ListenAddr)
	}()
	go t.Sweep(ctx)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-shutdown:
		log.Infow("shutdown", "signal", sig)
		cancel()
		time.Sleep(200 * time.Millisecond)
	}

	return nil
}
