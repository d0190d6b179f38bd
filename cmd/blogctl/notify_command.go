package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <post-id>...",
		Short: "Email subscribers about published posts",
		Long: "Send the new-post email for each post to every active subscriber whose topics\n" +
			"match the post's categories. Drafts and unknown ids are skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(a *app) error {
				report, err := a.services.Notification.NotifyPosts(cmd.Context(), args)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(report.Items))
				for _, item := range report.Items {
					note := item.Reason
					if !item.Skipped && len(item.Result.Errors) > 0 {
						note = strings.Join(item.Result.Errors, "; ")
					}
					rows = append(rows, []string{
						item.PostID,
						item.Title,
						strconv.Itoa(item.Result.Sent),
						strconv.Itoa(item.Result.Failed),
						note,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Post", "Title", "Sent", "Failed", "Note"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "%d sent, %d failed, %d skipped\n", report.Sent, report.Failed, report.Skipped)
				return nil
			})
		},
	}
}

func newTestEmailCommand(ctx *commandContext) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a test email to check mail settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(to) == "" {
				return errors.New("--to is required")
			}
			return ctx.withServices(func(a *app) error {
				if err := a.services.Notification.SendTestEmail(cmd.Context(), to); err != nil {
					return fmt.Errorf("send test email: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Test email sent to %s\n", to)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address")

	return cmd
}
