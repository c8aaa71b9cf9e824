package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"passengerexport/internal/config"
	"passengerexport/internal/etl"
	"passengerexport/internal/logger"
	"passengerexport/internal/metrics"
	"passengerexport/internal/metrics/prompush"
)

const usage = `Usage: passengerexport [options]
  -p, --pgUri tcp://<user>@<ip>/<db>
  -m, --mongoUri mongodb://<ip>:<port>/<db>/<collection>
  -c, --csvPath <path>
  -h, --help
`

// Runner executes one export. Replaced in tests.
type Runner func(ctx context.Context, opts config.Options, log *logrus.Logger) (*etl.Result, error)

// NewRootCommand builds the CLI. When any required option is missing
// after flags and environment are applied, usage is printed and run is
// never called.
func NewRootCommand(run Runner) *cobra.Command {
	var (
		opts    config.Options
		envFile string
	)

	cmd := &cobra.Command{
		Use:           "passengerexport",
		Short:         "Export passenger reports enriched with user records to a ;-separated file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(envFile); err != nil {
				return err
			}
			opts.ApplyEnv()
			if !opts.Complete() {
				fmt.Fprint(cmd.OutOrStdout(), usage)
				return nil
			}

			log, err := logger.New(cmd.ErrOrStderr(), opts.LogLevel, opts.LogFormat)
			if err != nil {
				return err
			}
			_, err = run(cmd.Context(), opts, log)
			return err
		},
	}
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		fmt.Fprint(c.OutOrStdout(), usage)
	})

	f := cmd.Flags()
	f.StringVarP(&opts.PgURI, "pgUri", "p", "", "relational source URI (postgres://, tcp://, mysql://, sqlite://)")
	f.StringVarP(&opts.MongoURI, "mongoUri", "m", "", "document source URI including database and collection")
	f.StringVarP(&opts.CSVPath, "csvPath", "c", "", "output file path")
	f.StringVar(&opts.PushgatewayURL, "pushgateway", "", "Prometheus Pushgateway URL for job metrics")
	f.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&opts.LogFormat, "log-format", "text", "log format (text, json)")
	f.StringVar(&envFile, "env-file", ".env", "dotenv file read before flags are resolved")

	return cmd
}

// Export is the production Runner: it wires metrics, runs the engine and
// pushes metrics once the run is over.
func Export(ctx context.Context, opts config.Options, log *logrus.Logger) (*etl.Result, error) {
	var backend metrics.Backend
	if opts.PushgatewayURL != "" {
		b, err := prompush.NewBackend("", opts.PushgatewayURL)
		if err != nil {
			return nil, err
		}
		backend = b
	}
	rec := metrics.NewRecorder(backend)

	result, err := etl.NewEngine(log, rec).Run(ctx, opts)
	if ferr := rec.Flush(); ferr != nil {
		log.WithError(ferr).Warn("push metrics")
	}
	return result, err
}

// Execute runs the CLI against os.Args and returns the process exit code.
func Execute(ctx context.Context, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(Export)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// Main is the entry point used by package main.
func Main() {
	os.Exit(Execute(context.Background(), os.Stdout, os.Stderr))
}
