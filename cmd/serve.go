package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesm/github-issue-chat/internal/notify"
	"github.com/wesm/github-issue-chat/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	listenAddr string
	workers    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP server and notification poller",
	Long: `Start an HTTP server exposing:

  POST /chat            {"message": "..."} -> {"response": "..."}
  GET  /notifications   notifications delivered to the calling session
  GET  /healthz         liveness probe
  GET  /                minimal browser chat page

New-issue notifications are printed to stdout as they are found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.ListenAddr
		if cmd.Flags().Changed("listen") {
			addr = listenAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		notifier := notify.NewJournalNotifier(a.journal, notify.NewConsoleNotifier(cmd.OutOrStdout()))
		poller := notify.New(a.client, a.registry, notifier, a.cfg.PollInterval, a.logger)
		poller.SetWorkers(workers)
		poller.Start(ctx)
		defer poller.Stop()

		srv := server.New(a.interpreter, a.journal, server.Options{
			AllowedOrigins: a.cfg.AllowedOrigins,
			Logger:         a.logger,
		})
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("chat server listening", "addr", addr, "default_repository", a.cfg.DefaultRepository)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("chat server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down chat server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "Address to listen on (overrides listen_addr)")
	serveCmd.Flags().IntVarP(&workers, "workers", "w", notify.DefaultWorkers, "Subscribers polled in parallel (max 10)")
}
