package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newSubscribersCommand(ctx *commandContext) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "List newsletter subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(a *app) error {
				subs, err := a.services.Subscription.List(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(subs))
				active := 0
				for _, s := range subs {
					if s.Active {
						active++
					} else if activeOnly {
						continue
					}
					topics := make([]string, 0, 3)
					for _, t := range s.Topics() {
						topics = append(topics, string(t))
					}
					rows = append(rows, []string{
						s.Email,
						strings.Join(topics, ", "),
						strconv.FormatBool(s.Active),
						strconv.FormatBool(s.ConfirmedAt != nil),
						s.SubscribedAt.Format("2006-01-02"),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Email", "Topics", "Active", "Confirmed", "Since"}, rows, nil))
				fmt.Fprintf(out, "%d subscribers, %d active\n", len(subs), active)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active subscribers")

	return cmd
}
