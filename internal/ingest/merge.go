package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/storage"
	"github.com/hbomb79/ytmeta/pkg/logger"
)

const (
	mergeReadBufferSize  = 64 * 1024
	mergeWriteBufferSize = 256 * 1024
	mergeCancelCheck     = 4096
)

type (
	// MergeResult describes the artifact produced by a merge.
	MergeResult struct {
		Path string
		// ShardRecords holds the number of records read from each shard, by shard index.
		ShardRecords []int64
		Records      int64
		Bytes        int64
	}

	// merger concatenates the decoded shards of a dataset, in shard index
	// order, in to the merged artifact, projecting every record as it goes.
	merger struct {
		exclude FieldSet
	}
)

// Merge produces the merged artifact for the dataset provided from its
// decoded shards. Any existing artifact is removed before the merge
// starts, and the new artifact only appears at its final path once every
// shard has been merged. A failure therefore leaves no artifact behind.
func (merger *merger) Merge(ctx context.Context, ds dataset.Dataset) (*MergeResult, error) {
	fail := func(shard int, sentinel error, err error) (*MergeResult, error) {
		return nil, stageErr(ds.Identifier(), MERGING, shard, sentinel, err)
	}

	path := ds.ArtifactPath()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fail(-1, ErrMerge, fmt.Errorf("failed to remove stale artifact: %w", err))
	}

	out, err := storage.NewAtomicWriter(path)
	if err != nil {
		return fail(-1, ErrMerge, err)
	}
	defer out.Abort()

	result := &MergeResult{Path: path, ShardRecords: make([]int64, ds.ShardCount())}
	counter := &countingWriter{w: out}
	buffered := bufio.NewWriterSize(counter, mergeWriteBufferSize)
	for shard := 0; shard < ds.ShardCount(); shard++ {
		n, err := merger.mergeShard(ctx, buffered, ds.DecodedPath(shard), shard)
		if err != nil {
			var parseErr *RecordParseError
			if errors.As(err, &parseErr) {
				return nil, &StageError{Dataset: ds.Identifier(), Stage: MERGING, Shard: shard, Err: parseErr}
			}

			return fail(shard, ErrMerge, err)
		}

		log.Emit(logger.VERBOSE, "Merged %d records from shard %s\n", n, ds.DecodedName(shard))
		result.ShardRecords[shard] = n
		result.Records += n
	}

	if err := buffered.Flush(); err != nil {
		return fail(-1, ErrMerge, err)
	}
	if err := out.Commit(); err != nil {
		return fail(-1, ErrMerge, err)
	}

	result.Bytes = counter.n
	return result, nil
}

// mergeShard appends every record of the decoded shard at the path
// provided to the writer, returning the number of records written.
func (merger *merger) mergeShard(ctx context.Context, w io.Writer, path string, shard int) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	var (
		reader  = bufio.NewReaderSize(in, mergeReadBufferSize)
		encoded = make([]byte, 0, mergeReadBufferSize)
		lineNo  = 0
		records int64
	)

	for {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return records, readErr
		}
		if len(line) == 0 && readErr == io.EOF {
			return records, nil
		}

		lineNo++
		if lineNo%mergeCancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return records, err
			}
		}

		line = bytes.TrimSuffix(bytes.TrimSuffix(line, []byte{'\n'}), []byte{'\r'})
		record, err := ParseRecord(line)
		if err != nil {
			return records, &RecordParseError{Shard: shard, Line: lineNo, Err: err}
		}

		encoded, err = Project(record, merger.exclude).AppendJSON(encoded[:0])
		if err != nil {
			return records, err
		}
		encoded = append(encoded, '\n')
		if _, err := w.Write(encoded); err != nil {
			return records, err
		}

		records++
		if readErr == io.EOF {
			return records, nil
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
