package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCaller string

var askExamples = []string{
	"show issues for repo golang/go",
	"create issue in repo acme/widgets title: Crash on save body: Steps to reproduce",
	"close issue #12 in repo acme/widgets",
}

var askCmd = &cobra.Command{
	Use:     "ask <message>",
	Short:   "Send a single chat message and print the response",
	Example: "  issuechat ask \"" + strings.Join(askExamples, "\"\n  issuechat ask \"") + "\"",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		response := a.interpreter.Handle(cmd.Context(), askCaller, strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askCaller, "caller", "cli", "Caller identity")
}
