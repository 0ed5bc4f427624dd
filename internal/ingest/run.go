package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/dataset"
)

type (
	State int

	// Run is the record of a single execution of the ingestion pipeline
	// for one dataset. Runs are owned by the service; the values returned
	// from its public methods are copies which are safe to read.
	Run struct {
		ID         uuid.UUID
		Dataset    dataset.Dataset
		State      State
		ShardCount int
		Fetched    int
		Decoded    int
		Records    int64
		Error      error
		Started    time.Time
		Finished   time.Time
	}
)

const (
	START State = iota
	FETCHING
	DECOMPRESSING
	MERGING
	CLEANING
	DONE
	FAILED
)

func (state State) String() string {
	switch state {
	case START:
		return "START"
	case FETCHING:
		return "FETCHING"
	case DECOMPRESSING:
		return "DECOMPRESSING"
	case MERGING:
		return "MERGING"
	case CLEANING:
		return "CLEANING"
	case DONE:
		return "DONE"
	case FAILED:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", int(state))
	}
}

// Terminal returns true if no further transitions can occur from this state.
func (state State) Terminal() bool { return state == DONE || state == FAILED }

func (run *Run) String() string {
	return fmt.Sprintf("Run{ID=%s Dataset=%s State=%s}", run.ID, run.Dataset, run.State)
}

// Duration returns how long the run took, or how long it has been
// running for if it has not yet finished.
func (run *Run) Duration() time.Duration {
	if run.Finished.IsZero() {
		return time.Since(run.Started)
	}

	return run.Finished.Sub(run.Started)
}
