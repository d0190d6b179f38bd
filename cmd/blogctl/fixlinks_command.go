package main

import (
	"fmt"
	"strconv"

	"github.com/blog-cms-api/internal/service"
	"github.com/spf13/cobra"
)

func newFixLinksCommand(ctx *commandContext) *cobra.Command {
	var opts service.LinkFixOptions

	cmd := &cobra.Command{
		Use:   "fix-links",
		Short: "Rewrite legacy WordPress upload links to local static paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(a *app) error {
				report, err := a.services.LinkFix.FixLinks(cmd.Context(), opts)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if opts.DryRun {
					fmt.Fprintln(out, "Dry run, nothing was saved")
				}
				if len(report.Rewrites) > 0 {
					rows := make([][]string, 0, len(report.Rewrites))
					for _, r := range report.Rewrites {
						rows = append(rows, []string{string(r.Kind), r.Title, strconv.Itoa(r.Links), strconv.FormatBool(r.Saved)})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Kind", "Title", "Links", "Saved"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				fmt.Fprintf(out, "Scanned %d posts and %d pages, %d need rewriting\n",
					report.PostsScanned, report.PagesScanned, len(report.Rewrites))
				if opts.Download {
					fmt.Fprintf(out, "Downloaded %d files, %d already present\n", report.Downloaded, report.AlreadyPresent)
				}
				for _, e := range report.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", e)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report changes without saving or downloading")
	cmd.Flags().BoolVar(&opts.Download, "download", false, "Download referenced files into the static uploads directory")
	cmd.Flags().StringSliceVar(&opts.Hosts, "host", nil, "Legacy host to rewrite (repeatable, defaults to LEGACY_UPLOAD_HOSTS)")

	return cmd
}
