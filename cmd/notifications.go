package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/wesm/github-issue-chat/config"
	"github.com/wesm/github-issue-chat/internal/db"
	"github.com/wesm/github-issue-chat/internal/models"
)

var (
	notificationsCaller string
	notificationsLimit  int
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications recorded in the journal",
	Long: `List new-issue notifications recorded in the journal at database_path.

The default in-memory journal does not outlive the server process; set
database_path to a file to inspect notifications from here.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if cfg.DatabasePath == db.MemoryPath {
			return fmt.Errorf("database_path is %s; configure a file path to keep a journal", db.MemoryPath)
		}

		journal, err := openJournal(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer journal.Close()

		notifications, err := journal.ListNotifications(cmd.Context(), notificationsCaller, notificationsLimit)
		if err != nil {
			return err
		}
		return renderNotifications(cmd.OutOrStdout(), notifications)
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)

	notificationsCmd.Flags().StringVar(&notificationsCaller, "caller", "", "Only show notifications for this caller")
	notificationsCmd.Flags().IntVarP(&notificationsLimit, "limit", "n", 20, "Maximum number of notifications (0 for all)")
}

func renderNotifications(out io.Writer, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		_, err := fmt.Fprintln(out, "No notifications found.")
		return err
	}

	table := tablewriter.NewTable(out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{"Notified", "Caller", "Repository", "Issue", "Title"})
	for _, n := range notifications {
		_ = table.Append([]string{
			n.NotifiedAt.Local().Format("2006-01-02 15:04"),
			n.CallerID,
			n.Repository,
			fmt.Sprintf("#%d", n.IssueNumber),
			n.Title,
		})
	}
	return table.Render()
}
