// Command ingest parses data files into typed tables, prints their schema
// and quality summary, and optionally exports the selected table into a
// database.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dataingest/internal/config"

	// register every export backend with the storage factory.
	_ "dataingest/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the state shared by all subcommands. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfgPath string
	verbose bool

	cfg config.Config
	log *zap.Logger
}

// flagKeys maps command-line flags to the config keys they override. A flag
// overrides only when set explicitly.
var flagKeys = map[string]string{
	"max-file-size":   "max_file_size",
	"delimiter":       "parser.delimiter",
	"encoding":        "parser.encoding",
	"kind":            "parser.kind",
	"table-selector":  "parser.html_table_selector",
	"metrics-backend": "metrics.backend",
	"pushgateway-url": "metrics.pushgateway_url",
	"export-kind":     "export.kind",
	"export-dsn":      "export.dsn",
	"export-table":    "export.table",
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "ingest",
		Short: "Parse data files into typed tables",
		Long: `ingest turns delimited text, JSON and HTML tables into typed tables.

Every file is parsed on its own: a malformed file is reported and the rest
of the batch still loads.

Examples:
  ingest run sales.csv people.json      # parse, infer types, audit quality
  ingest run --select 1 a.csv b.csv     # show the second dataset
  ingest run --export-kind sqlite --export-dsn out.db sales.csv
  ingest schema people.json             # inferred schema of one file
  ingest validate -c ingest.yaml        # check a config file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (json, yaml or toml); INGEST_* env vars override it")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(a), newSchemaCmd(a), newValidateCmd(a))
	return root
}

// init loads the configuration and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	v, err := config.NewViper(a.cfgPath)
	if err != nil {
		return errors.Mark(err, errInvalidConfig)
	}
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind --%s", name)
		}
	}
	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return errors.Mark(err, errInvalidConfig)
	}

	a.cfg = cfg
	a.log = newLogger(cmd.ErrOrStderr(), a.verbose)
	return nil
}

var errInvalidConfig = errors.New("invalid configuration")

// newLogger writes human-readable logs to w. Without verbose only warnings
// and errors are shown; the command output itself goes to stdout.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	return zap.New(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level),
	)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	for _, h := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "hint: %s\n", h)
	}
}
