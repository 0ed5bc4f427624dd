package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hbomb79/ytmeta/internal"
	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/ingest"
	"github.com/spf13/cobra"
)

// NewRootCommand constructs the 'ytmeta' command, with the 'ingest' and
// 'serve' sub-commands attached.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	rc := &cobra.Command{
		Use:   "ytmeta",
		Short: "ytmeta ingests the daily video metadata datasets published to the archive.",
		Long: `ytmeta ingests the daily video metadata datasets published to the archive.

Each dataset is published as a number of gzip compressed JSON-lines shards. ytmeta
fetches and decompresses every shard concurrently, then merges them in to a single
JSON-lines artifact with a configured set of fields removed from every record.

Configuration is read from the YAML file given by --config (if any), with
environment variables taking precedence.`,
		SilenceUsage: true,
	}
	rc.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML) to read from.")

	load := func() (*internal.Config, error) {
		config, err := internal.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}

		return config, config.ApplyLogLevel()
	}

	rc.AddCommand(newIngestCommand(stdout, load))
	rc.AddCommand(newServeCommand(load))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

func newIngestCommand(stdout io.Writer, load func() (*internal.Config, error)) *cobra.Command {
	var ifMissing bool

	cmd := &cobra.Command{
		Use:   "ingest [date]",
		Short: "Ingest the dataset for a date (YYYY-MM-DD), by default yesterday.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := load()
			if err != nil {
				return err
			}

			app, err := internal.New(*config)
			if err != nil {
				return err
			}

			date := ""
			if len(args) > 0 {
				date = args[0]
			}

			ds, err := config.Ingest.Layout().Resolve(date, time.Now(), config.Ingest.DateOffsetDays)
			if err != nil {
				return err
			}
			date = ds.DateString()

			if ifMissing {
				info, err := app.EnsureArtifact(cmd.Context(), date)
				if err != nil {
					return describeFailure(date, err)
				}

				fmt.Fprintf(stdout, "%s: artifact %s (%d bytes)\n", info.Dataset, info.Path, info.Size)
				return nil
			}

			run, err := app.Ingest(cmd.Context(), date)
			if err != nil {
				return describeFailure(date, err)
			}

			fmt.Fprintf(stdout, "%s: %d records written to %s in %s\n", run.Dataset, run.Records, run.Dataset.ArtifactPath(), run.Duration())
			return nil
		},
	}
	cmd.Flags().BoolVar(&ifMissing, "if-missing", false, "Only ingest the dataset if its artifact does not already exist.")

	return cmd
}

func newServeCommand(load func() (*internal.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, allowing datasets to be ingested and streamed remotely.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := load()
			if err != nil {
				return err
			}

			app, err := internal.New(*config)
			if err != nil {
				return err
			}

			return app.Serve(cmd.Context())
		},
	}
}

// describeFailure replaces the error for a dataset the archive does not
// hold with the message users are expected to act on.
func describeFailure(date string, err error) error {
	if errors.Is(err, archive.ErrItemNotFound) {
		return errors.New(ingest.RemoteUnavailableMessage(date))
	}

	return err
}
