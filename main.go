package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mindmail/internal/config"
	"mindmail/internal/errs"
	"mindmail/internal/logger"
	"mindmail/internal/scheduler"
	"mindmail/pkg/rabbitmq"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	rootCmd := &cobra.Command{
		Use:           "mindmail",
		Short:         "Journal and letters to your future self",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Optional .env file to load before reading MINDMAIL_* variables")

	// open loads config and builds the application for a subcommand.
	open := func(cmd *cobra.Command) (*application, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		log, err := logger.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		return newApplication(cmd.Context(), cfg, log, nil)
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, delivery triggers and the reconcile worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			defer a.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Deliver every letter whose time has come and print their ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			delivered, err := a.letters.Reconcile(cmd.Context())
			for _, l := range delivered {
				fmt.Fprintln(cmd.OutOrStdout(), l.ID)
			}
			return err
		},
	}

	lettersCmd := &cobra.Command{
		Use:   "letters",
		Short: "Print scheduled and delivered letters as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			scheduled, err := a.letters.Scheduled(cmd.Context())
			if err != nil {
				return err
			}
			delivered, err := a.letters.Delivered(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"scheduled": scheduled,
				"delivered": delivered,
			})
		},
	}

	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Print journal entries as JSON, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.journal.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}

	rootCmd.AddCommand(serveCmd, reconcileCmd, lettersCmd, journalCmd)
	return rootCmd
}

// serve runs until ctx is canceled or one of its parts fails.
func (a *application) serve(ctx context.Context) error {
	if n, err := a.letters.RescheduleAll(ctx); err != nil {
		if errors.Is(err, errs.ErrPermissionDenied) {
			a.logger.Warn("notifications disabled, relying on reconcile for delivery")
		} else {
			a.logger.Error("rescheduling letters failed", zap.Error(err))
		}
	} else {
		a.logger.Info("delivery triggers registered", zap.Int("count", n))
	}

	srv := a.routes()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting server", zap.String("addr", a.cfg.App.Port))
		if err := srv.Listen(a.cfg.App.Port); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")
		return srv.ShutdownWithTimeout(10 * time.Second)
	})
	g.Go(func() error {
		return scheduler.NewWorker(a.sched, a.cfg.Reconcile.Interval, a.clock, a.logger.Named("worker")).Run(gctx)
	})

	notify := rabbitmq.LogDeliveries(a.logger.Named("inbox"))
	if a.broker != nil {
		g.Go(func() error { return a.broker.ConsumeDeliveries(gctx, notify) })
	} else {
		g.Go(func() error { return a.watchBus(gctx, notify) })
	}

	err := g.Wait()
	a.logger.Info("server stopped")
	return err
}

// watchBus hands in-process delivery events to notify until ctx ends.
func (a *application) watchBus(ctx context.Context, notify rabbitmq.HandlerFunc) error {
	ch, unsubscribe := a.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if err := notify(ctx, evt); err != nil {
				a.logger.Warn("delivery notification failed", zap.String("letter_id", evt.LetterID), zap.Error(err))
			}
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
