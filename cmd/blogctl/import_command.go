package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var key string
	var showErrors int

	cmd := &cobra.Command{
		Use:   "import <file.xml>",
		Short: "Import a WordPress WXR export",
		Long: "Import posts, pages, comments, categories and tags from a WordPress export.\n" +
			"Records that already exist are skipped, so the same file can be imported again safely.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(a *app) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}

				job, err := a.services.Job.CreateAndRun(cmd.Context(), service.ImportRequest{
					FileName:       filepath.Base(path),
					FilePath:       path,
					IdempotencyKey: key,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Import job %s: %s\n", job.ID, job.Status)
				if job.Report != nil {
					printImportReport(out, job.Report, showErrors)
				}
				if job.Status == models.JobStatusFailed {
					return fmt.Errorf("import failed: %s", job.Failure)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Idempotency key; a repeated key returns the earlier job")
	cmd.Flags().IntVar(&showErrors, "errors", 20, "Maximum number of record errors to print")

	return cmd
}

var reportKinds = []models.EntityKind{
	models.KindCategory,
	models.KindTag,
	models.KindPost,
	models.KindPage,
	models.KindComment,
}

func printImportReport(out io.Writer, report *models.ImportReport, maxErrors int) {
	rows := make([][]string, 0, len(reportKinds)+1)
	for _, kind := range reportKinds {
		c := report.Counts(kind)
		rows = append(rows, []string{string(kind), strconv.Itoa(c.Created), strconv.Itoa(c.Skipped), strconv.Itoa(c.Errored)})
	}
	total := report.Totals()
	rows = append(rows, []string{"total", strconv.Itoa(total.Created), strconv.Itoa(total.Skipped), strconv.Itoa(total.Errored)})

	fmt.Fprintln(out, renderTable(
		[]string{"Kind", "Created", "Skipped", "Errored"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
	if report.Ignored > 0 {
		fmt.Fprintf(out, "Ignored %d items of other types\n", report.Ignored)
	}
	if report.Notified.Sent > 0 || report.Notified.Failed > 0 {
		fmt.Fprintf(out, "Notifications: %d sent, %d failed\n", report.Notified.Sent, report.Notified.Failed)
	}

	if len(report.Errors) == 0 || maxErrors <= 0 {
		return
	}
	errRows := make([][]string, 0, maxErrors)
	for i, e := range report.Errors {
		if i == maxErrors {
			break
		}
		errRows = append(errRows, []string{string(e.Kind), e.Ref, e.Message})
	}
	fmt.Fprintln(out, renderTable([]string{"Kind", "Ref", "Error"}, errRows, nil))
	if len(report.Errors) > maxErrors {
		fmt.Fprintf(out, "... and %d more errors\n", len(report.Errors)-maxErrors)
	}
}
