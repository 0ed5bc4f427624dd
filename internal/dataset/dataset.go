// Package dataset derives every name used by the ingestion pipeline
// (remote item identifier, shard file names, local working directory
// and merged artifact path) from a single calendar date.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid dataset date")

type (
	// Layout describes how datasets are named remotely and where
	// their local artifacts live.
	Layout struct {
		// Prefix of the remote item, e.g. YT-VIDEO-METADATA
		Prefix string
		// ArtifactPrefix of the merged output file, e.g. video-metadata-with-lang
		ArtifactPrefix string
		// WorkDir is the directory under which per-dataset working
		// directories are created
		WorkDir string
		// OutputDir is the directory merged artifacts are written to
		OutputDir string
		// ShardCount is the fixed number of shards each dataset consists of
		ShardCount int
	}

	// Dataset binds a calendar day to its remote collection and local artifacts.
	Dataset struct {
		Date   time.Time
		layout Layout
	}
)

// New returns the dataset for the given date using the layout. Only
// the calendar day of the date is significant.
func (layout Layout) New(date time.Time) Dataset {
	y, m, d := date.Date()
	return Dataset{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), layout: layout}
}

// Parse returns the dataset for a date formatted as YYYY-MM-DD.
func (layout Layout) Parse(date string) (Dataset, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w '%s': expected YYYY-MM-DD", ErrInvalidDate, date)
	}

	return layout.New(t), nil
}

// Relative returns the dataset 'offsetDays' days before now, which
// allows the default dataset to be 'yesterday' (offset of one).
func (layout Layout) Relative(now time.Time, offsetDays int) Dataset {
	return layout.New(now.AddDate(0, 0, -offsetDays))
}

// Resolve parses the date provided, or if it is empty falls back to
// the dataset offsetDays before now.
func (layout Layout) Resolve(date string, now time.Time, offsetDays int) (Dataset, error) {
	if date == "" {
		return layout.Relative(now, offsetDays), nil
	}

	return layout.Parse(date)
}

func (ds Dataset) Layout() Layout { return ds.layout }

// DateString returns the date of this dataset formatted as YYYY-MM-DD.
func (ds Dataset) DateString() string { return ds.Date.Format(DateLayout) }

// Identifier is the remote item name, {PREFIX}-{date}.
func (ds Dataset) Identifier() string {
	return fmt.Sprintf("%s-%s", ds.layout.Prefix, ds.DateString())
}

func (ds Dataset) ShardCount() int { return ds.layout.ShardCount }

// ShardName returns the remote (and local) file name of the compressed shard.
func (ds Dataset) ShardName(index int) string {
	return fmt.Sprintf("%s-%02d.jsonl.gz", ds.Identifier(), index)
}

// DecodedName returns the local file name of the decompressed shard.
func (ds Dataset) DecodedName(index int) string {
	return fmt.Sprintf("%s-%02d.jsonl", ds.Identifier(), index)
}

// WorkDir is the per-dataset directory holding transient shard files.
func (ds Dataset) WorkDir() string {
	return filepath.Join(ds.layout.WorkDir, ds.Identifier())
}

func (ds Dataset) ShardPath(index int) string {
	return filepath.Join(ds.WorkDir(), ds.ShardName(index))
}

func (ds Dataset) DecodedPath(index int) string {
	return filepath.Join(ds.WorkDir(), ds.DecodedName(index))
}

// ArtifactPath is where the merged artifact for this dataset lives.
func (ds Dataset) ArtifactPath() string {
	return filepath.Join(ds.layout.OutputDir, fmt.Sprintf("%s-%s.jsonl", ds.layout.ArtifactPrefix, ds.DateString()))
}

// Previous returns the dataset for the day before this one.
func (ds Dataset) Previous() Dataset {
	return ds.layout.New(ds.Date.AddDate(0, 0, -1))
}

func (ds Dataset) String() string { return ds.Identifier() }
