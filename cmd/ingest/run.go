package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dataingest/internal/datasource/file"
	"dataingest/internal/exporter"
	"dataingest/internal/ingest"
	"dataingest/internal/storage"
)

type runOptions struct {
	selectIdx     int
	preview       int
	jsonOut       bool
	failOnError   bool
	exportReplace bool
}

func newRunCmd(a *app) *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Ingest files, print their schema and quality, optionally export",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args, o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.selectIdx, "select", -1, "index of the dataset to show and export (default: first)")
	f.IntVar(&o.preview, "preview", 5, "rows of the selected dataset to print")
	f.BoolVar(&o.jsonOut, "json", false, "print the summary as JSON")
	f.BoolVar(&o.failOnError, "fail-on-error", false, "exit non-zero when any file fails")
	f.BoolVar(&o.exportReplace, "export-replace", false, "drop the export table before loading")
	addParserFlags(cmd)
	f.String("metrics-backend", "", "metrics backend: none, datadog or pushgateway")
	f.String("pushgateway-url", "", "Pushgateway base URL")
	f.String("export-kind", "", "export backend: sqlite, postgres or mssql")
	f.String("export-dsn", "", "export database DSN")
	f.String("export-table", "", "export table (default: derived from the file name)")
	return cmd
}

func addParserFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("max-file-size", "", "per-file size ceiling, e.g. 50MB (0 disables)")
	f.String("delimiter", "", `field delimiter for delimited text (default: sniffed; "tab" for \t)`)
	f.String("encoding", "", "text encoding, e.g. windows-1252 (default: UTF-8 with BOM detection)")
	f.String("kind", "", "source kind: delimited-text, json or html (default: detected)")
	f.String("table-selector", "", "CSS selector of the HTML table to read")
}

func (a *app) run(cmd *cobra.Command, args []string, o runOptions) error {
	if err := a.checkConfig(); err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	stopMetrics := setupMetrics(ctx, a.cfg.Metrics, a.log)
	defer stopMetrics()

	srcs, err := file.OpenAll(args)
	if err != nil {
		return err
	}

	in, err := ingest.New(
		ingest.WithLogger(a.log),
		ingest.WithConfig(a.cfg),
		ingest.WithProgress(func(st ingest.BatchState) {
			a.log.Debug("batch progress", zap.Stringer("state", st))
		}),
	)
	if err != nil {
		return err
	}
	for _, s := range srcs {
		in.Submit(s)
	}

	st, err := in.Run(ctx)
	if err != nil {
		return errors.Wrap(err, "ingest interrupted")
	}

	if o.selectIdx >= 0 {
		if err := in.Select(o.selectIdx); err != nil {
			return errors.WithHintf(err, "the batch has %d dataset(s); indexes start at 0", in.Batch().Len())
		}
	}

	b := in.Batch()
	sum := summarize(st, in.Slots(), b)
	selected, hasSelected := b.Selected()

	if a.cfg.Export.Kind != "" && hasSelected {
		res, err := a.export(cmd, selected, o.exportReplace)
		if err != nil {
			return err
		}
		sum.Export = &res
	}

	if o.jsonOut {
		if err := writeJSON(out, sum); err != nil {
			return err
		}
	} else {
		printFiles(out, sum)
		if hasSelected {
			fmt.Fprintf(out, "\nselected: %s\n", selected.Source().Name)
			cols, _ := summarizeDataset(selected)
			printColumns(out, cols)
			fmt.Fprintln(out)
			printPreview(out, selected, o.preview)
		}
		if sum.Export != nil {
			fmt.Fprintf(out, "\nexported %d rows to %s (%s)\n", sum.Export.Rows, sum.Export.Table, a.cfg.Export.Kind)
		}
	}

	if o.failOnError && st.Failed > 0 {
		return errors.Newf("%d of %d file(s) failed", st.Failed, st.Done+st.Failed)
	}
	return nil
}

func (a *app) export(cmd *cobra.Command, ds *ingest.Dataset, replace bool) (exporter.Result, error) {
	ctx := cmd.Context()
	repo, err := storage.New(ctx, storage.Config{Kind: a.cfg.Export.Kind, DSN: a.cfg.Export.DSN})
	if err != nil {
		return exporter.Result{}, err
	}
	defer repo.Close()

	return exporter.Export(ctx, repo, ds, exporter.Options{Table: a.cfg.Export.Table, Replace: replace}, a.log)
}
