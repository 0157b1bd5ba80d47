// Command peer runs a single songledger peer: it joins the tracker
// rendezvous, participates in the block/transaction mesh, mines
// candidate blocks from its pool, and serves a small local HTTP API
// for an out-of-scope GUI front end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/songledger/songledger/app/services/peer"
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
		Use:   "peer [stay-time-seconds]",
		Short: "run a songledger peer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stayTime time.Duration
			if len(args) == 1 {
				seconds, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("stay time must be an integer number of seconds: %w", err)
				}
				stayTime = time.Duration(seconds) * time.Second
			}
			return runPeer(log, stayTime)
		},
	}
	return root.Execute()
}

func runPeer(log *zap.SugaredLogger, stayTime time.Duration) error {
	var cfg peer.Config
	help, err := conf.Parse("SONGLEDGER", &cfg)
	if err != nil {
		if err == conf.ErrHelpWanted {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	p, err := peer.New(log, cfg)
	if err != nil {
		return fmt.Errorf("assembling peer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if stayTime > 0 {
		go func() {
			<-time.After(stayTime)
			cancel()
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		cancel()
	}()

	return p.Run(ctx)
}
