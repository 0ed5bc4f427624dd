package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrRemoteUnavailable = errors.New("remote dataset unavailable")
	ErrShardFetch        = errors.New("shard fetch failed")
	ErrDecode            = errors.New("shard decode failed")
	ErrRecordParse       = errors.New("record parse failed")
	ErrMerge             = errors.New("merge failed")
	ErrArtifactNotFound  = errors.New("no merged artifact exists for this dataset")
	ErrRunInProgress     = errors.New("an ingestion for this dataset is already in progress")
)

// StageError is returned when a pipeline stage fails for a dataset. The
// underlying cause (one of the sentinel errors above, wrapping the
// original failure) is available via errors.Is and errors.As.
type StageError struct {
	Dataset string
	Stage   State
	// Shard is the index of the shard being processed, or -1 if the
	// failure is not specific to a single shard.
	Shard int
	Err   error
}

func (e *StageError) Error() string {
	if e.Shard < 0 {
		return fmt.Sprintf("ingestion of %s failed during %s: %v", e.Dataset, e.Stage, e.Err)
	}

	return fmt.Sprintf("ingestion of %s failed during %s (shard %02d): %v", e.Dataset, e.Stage, e.Shard, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RecordParseError describes a line of a decoded shard which is not
// a single, valid JSON object.
type RecordParseError struct {
	Shard int
	Line  int
	Err   error
}

func (e *RecordParseError) Error() string {
	return fmt.Sprintf("%v: shard %02d line %d: %v", ErrRecordParse, e.Shard, e.Line, e.Err)
}

func (e *RecordParseError) Unwrap() []error { return []error{ErrRecordParse, e.Err} }

// RemoteUnavailableMessage is the user facing explanation of an
// ErrRemoteUnavailable failure.
func RemoteUnavailableMessage(date string) string {
	return fmt.Sprintf("no data available for date %s, pick another date", date)
}

func stageErr(dataset string, stage State, shard int, sentinel error, err error) *StageError {
	return &StageError{Dataset: dataset, Stage: stage, Shard: shard, Err: fmt.Errorf("%w: %w", sentinel, err)}
}
