package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"dataingest/internal/datasource/file"
	"dataingest/internal/ingest"
)

func newSchemaCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "schema FILE",
		Short: "Print the inferred schema of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkConfig(); err != nil {
				return err
			}
			src, err := file.Open(args[0])
			if err != nil {
				return err
			}
			in, err := ingest.New(ingest.WithLogger(a.log), ingest.WithConfig(a.cfg))
			if err != nil {
				return err
			}
			in.Submit(src)
			if _, err := in.Run(cmd.Context()); err != nil {
				return err
			}

			ds, ok := in.Batch().Selected()
			if !ok {
				// A single failed slot carries the parse error.
				if slots := in.Slots(); len(slots) == 1 && slots[0].Err != nil {
					return slots[0].Err
				}
				return errors.Newf("%s produced no dataset", args[0])
			}

			cols, q := summarizeDataset(ds)
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, struct {
					File    ingest.SourceFile `json:"file"`
					Kind    string            `json:"kind"`
					Rows    int               `json:"rows"`
					Columns []columnSummary   `json:"columns"`
					Quality any               `json:"quality"`
				}{ds.Source(), ds.Kind().String(), ds.Len(), cols, q})
			}
			fmt.Fprintf(out, "%s (%s, %d rows)\n", ds.Source().Name, ds.Kind(), ds.Len())
			printColumns(out, cols)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")
	addParserFlags(cmd)
	return cmd
}
