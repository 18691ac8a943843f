package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesm/github-issue-chat/internal/mcp"
	"github.com/wesm/github-issue-chat/internal/notify"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

Configure it in an MCP client with:

  {
    "mcpServers": {
      "issuechat": { "command": "issuechat", "args": ["mcp"] }
    }
  }

Available tools: issues_chat, issues_notifications.

The notification poller runs in the background; found issues are recorded
in the journal and listed by issues_notifications.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// stdout carries the protocol, so console notifications go to stderr
		notifier := notify.NewJournalNotifier(a.journal, notify.NewConsoleNotifier(cmd.ErrOrStderr()))
		poller := notify.New(a.client, a.registry, notifier, a.cfg.PollInterval, a.logger)
		poller.Start(ctx)
		defer poller.Stop()

		return mcp.NewServer(a.interpreter, a.journal, version).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
