package ingest

import (
	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/retry"
)

// DefaultExcludeFields are the top-level record fields dropped
// from every record before it is written to the merged artifact.
var DefaultExcludeFields = []string{
	"upload_date",
	"channel_id",
	"view_count",
	"average_rating",
	"age_limit",
	"subtitles",
	"like_count",
	"automatic_captions",
}

// Config contains configuration options that control how datasets
// are retrieved and where their artifacts are stored.
type Config struct {
	// The prefix of the remote item name, the date of the dataset
	// is appended to this to form the item identifier.
	DatasetPrefix string `yaml:"dataset_prefix" env:"INGEST_DATASET_PREFIX" env-default:"YT-VIDEO-METADATA" validate:"required"`

	// The prefix of the merged artifact file name.
	ArtifactPrefix string `yaml:"artifact_prefix" env:"INGEST_ARTIFACT_PREFIX" env-default:"video-metadata-with-lang" validate:"required"`

	// Every dataset consists of exactly this many shards, numbered
	// from zero.
	ShardCount int `yaml:"shard_count" env:"INGEST_SHARD_COUNT" env-default:"24" validate:"min=1,max=100"`

	// Controls the number of workers used to fetch and decompress
	// shards. This is independent of the shard count; caution should
	// be taken when increasing it as each fetch worker holds open a
	// connection to the remote archive.
	WorkerCount int `yaml:"worker_count" env:"INGEST_WORKER_COUNT" env-default:"12" validate:"min=1"`

	// Top-level fields removed from every record.
	ExcludeFields []string `yaml:"exclude_fields" env:"INGEST_EXCLUDE_FIELDS" env-separator:","`

	// When no date is given, the dataset this many days before today
	// is ingested. The remote archive publishes a day's dataset
	// after that day has ended, hence the default of one.
	DateOffsetDays int `yaml:"date_offset_days" env:"INGEST_DATE_OFFSET_DAYS" env-default:"1" validate:"min=0"`

	// If enabled, the md5 of every downloaded shard is compared against
	// the value advertised by the archive.
	VerifyChecksum bool `yaml:"verify_checksum" env:"INGEST_VERIFY_CHECKSUM" env-default:"true"`

	// WorkDir is where the per-dataset working directories are created.
	WorkDir string `yaml:"work_dir" env:"INGEST_WORK_DIR" env-default:"." validate:"required"`

	// OutputDir is where merged artifacts are written.
	OutputDir string `yaml:"output_dir" env:"INGEST_OUTPUT_DIR" env-default:"." validate:"required"`

	// If enabled, the working directory of a failed run is removed. By
	// default it is retained so the shards can be inspected.
	CleanupOnFailure bool `yaml:"cleanup_on_failure" env:"INGEST_CLEANUP_ON_FAILURE" env-default:"false"`

	// RunHistory is the number of runs retained for querying. Once
	// exceeded, the oldest finished runs are forgotten.
	RunHistory int `yaml:"run_history" env:"INGEST_RUN_HISTORY" env-default:"100" validate:"min=1"`

	// Retry policy applied to each shard download.
	Retry retry.Config `yaml:"retry" env-prefix:"INGEST_"`
}

// DefaultRunHistory is used when no run history size is configured.
const DefaultRunHistory = 100

// DefaultConfig returns the config used when no overrides are provided.
func DefaultConfig() Config {
	return Config{
		DatasetPrefix:  "YT-VIDEO-METADATA",
		ArtifactPrefix: "video-metadata-with-lang",
		ShardCount:     24,
		WorkerCount:    12,
		ExcludeFields:  append([]string(nil), DefaultExcludeFields...),
		DateOffsetDays: 1,
		VerifyChecksum: true,
		WorkDir:        ".",
		OutputDir:      ".",
		RunHistory:     DefaultRunHistory,
		Retry:          retry.DefaultConfig(),
	}
}

// Layout returns the dataset naming layout described by this config.
func (config Config) Layout() dataset.Layout {
	return dataset.Layout{
		Prefix:         config.DatasetPrefix,
		ArtifactPrefix: config.ArtifactPrefix,
		WorkDir:        config.WorkDir,
		OutputDir:      config.OutputDir,
		ShardCount:     config.ShardCount,
	}
}

// ExcludeSet returns the configured exclusion set, falling back to
// DefaultExcludeFields when none are configured.
func (config Config) ExcludeSet() FieldSet {
	if config.ExcludeFields == nil {
		return NewFieldSet(DefaultExcludeFields...)
	}

	return NewFieldSet(config.ExcludeFields...)
}
