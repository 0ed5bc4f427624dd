package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/ingest/mocks"
	"github.com/hbomb79/ytmeta/internal/retry"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gotest.tools/v3/fs"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

var fastRetry = retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}

func newFetchDataset(t *testing.T, shards int) dataset.Dataset {
	dir := fs.NewDir(t, "fetch")
	layout := dataset.Layout{Prefix: "YT-VIDEO-METADATA", ArtifactPrefix: "out", WorkDir: dir.Path(), OutputDir: dir.Path(), ShardCount: shards}
	ds, err := layout.Parse("2024-01-01")
	assert.NoError(t, err)

	return ds
}

// listing returns an archive listing for the shards of the dataset, along
// with the content each shard holds.
func listing(ds dataset.Dataset) ([]archive.File, map[string][]byte) {
	files := make([]archive.File, 0, ds.ShardCount())
	content := make(map[string][]byte, ds.ShardCount())
	for i := 0; i < ds.ShardCount(); i++ {
		name := ds.ShardName(i)
		body := []byte("content of " + name)
		sum := md5.Sum(body)

		content[name] = body
		files = append(files, archive.File{Name: name, Size: int64(len(body)), MD5: hex.EncodeToString(sum[:])})
	}

	return files, content
}

// serve returns a mock Download implementation which writes the content
// of the file requested.
func serve(content map[string][]byte) func(context.Context, string, archive.File, io.Writer) (*archive.Transfer, error) {
	return func(_ context.Context, _ string, file archive.File, dst io.Writer) (*archive.Transfer, error) {
		body := content[file.Name]
		n, err := dst.Write(body)
		sum := md5.Sum(body)
		return &archive.Transfer{Bytes: int64(n), MD5: hex.EncodeToString(sum[:])}, err
	}
}

func Test_Fetch_AllShards(t *testing.T) {
	ds := newFetchDataset(t, 6)
	files, content := listing(ds)

	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().Download(mock.Anything, ds.Identifier(), mock.Anything, mock.Anything).RunAndReturn(serve(content)).Times(6)

	var completed atomic.Int32
	f := &fetcher{remote: remote, workers: 2, retry: fastRetry, verify: true, hooks: shardHooks{
		completed: func(int, int64) { completed.Add(1) },
	}}
	assert.NoError(t, f.Fetch(context.Background(), ds, files))
	assert.EqualValues(t, 6, completed.Load())

	for i := 0; i < 6; i++ {
		actual, err := os.ReadFile(ds.ShardPath(i))
		assert.NoError(t, err)
		assert.Equal(t, content[ds.ShardName(i)], actual)
	}
}

func Test_Fetch_ShardMissingFromListing(t *testing.T) {
	ds := newFetchDataset(t, 2)
	files, content := listing(ds)

	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).RunAndReturn(serve(content)).Maybe()

	f := &fetcher{remote: remote, workers: 1, retry: fastRetry, verify: true}
	err := f.Fetch(context.Background(), ds, files[:1])

	assert.ErrorIs(t, err, ErrShardFetch)
	var stageErr *StageError
	if assert.ErrorAs(t, err, &stageErr) {
		assert.Equal(t, FETCHING, stageErr.Stage)
		assert.Equal(t, 1, stageErr.Shard)
		assert.Equal(t, ds.Identifier(), stageErr.Dataset)
	}
	assert.NoFileExists(t, ds.ShardPath(1))
}

func Test_Fetch_RetriesTransientFailures(t *testing.T) {
	ds := newFetchDataset(t, 1)
	files, content := listing(ds)

	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()
	remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, &archive.StatusError{StatusCode: http.StatusServiceUnavailable}).Once()
	remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).RunAndReturn(serve(content)).Once()

	var retried atomic.Int32
	f := &fetcher{remote: remote, workers: 1, retry: fastRetry, verify: true, hooks: shardHooks{
		retried: func(int, error) { retried.Add(1) },
	}}
	assert.NoError(t, f.Fetch(context.Background(), ds, files))
	assert.EqualValues(t, 2, retried.Load())
	assert.FileExists(t, ds.ShardPath(0))
}

func Test_Fetch_ChecksumMismatchExhaustsRetries(t *testing.T) {
	ds := newFetchDataset(t, 1)
	files, content := listing(ds)
	files[0].MD5 = "00000000000000000000000000000000"

	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).RunAndReturn(serve(content)).Times(3)

	f := &fetcher{remote: remote, workers: 1, retry: fastRetry, verify: true}
	err := f.Fetch(context.Background(), ds, files)

	assert.ErrorIs(t, err, ErrShardFetch)
	var checksumErr *archive.ChecksumError
	assert.ErrorAs(t, err, &checksumErr)
	var exhausted *retry.ExhaustedError
	if assert.ErrorAs(t, err, &exhausted) {
		assert.Equal(t, 3, exhausted.Attempts)
	}
	assert.NoFileExists(t, ds.ShardPath(0), "expected unverified shard to not be kept")
}

func Test_Fetch_ChecksumIgnoredWhenVerificationDisabled(t *testing.T) {
	ds := newFetchDataset(t, 1)
	files, content := listing(ds)
	files[0].MD5 = "00000000000000000000000000000000"

	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).RunAndReturn(serve(content)).Once()

	f := &fetcher{remote: remote, workers: 1, retry: fastRetry, verify: false}
	assert.NoError(t, f.Fetch(context.Background(), ds, files))
	assert.FileExists(t, ds.ShardPath(0))
}

func Test_Fetch_PermanentFailuresNotRetried(t *testing.T) {
	tests := []struct {
		summary string
		err     error
	}{
		{"file not found", archive.ErrFileNotFound},
		{"forbidden", &archive.StatusError{StatusCode: http.StatusForbidden}},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			ds := newFetchDataset(t, 1)
			files, _ := listing(ds)

			remote := mocks.NewMockRemoteStore(t)
			remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			f := &fetcher{remote: remote, workers: 1, retry: fastRetry, verify: true}
			err := f.Fetch(context.Background(), ds, files)
			assert.ErrorIs(t, err, ErrShardFetch)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func Test_Fetch_SkipsShardsAlreadyPresent(t *testing.T) {
	ds := newFetchDataset(t, 3)
	files, content := listing(ds)

	assert.NoError(t, os.MkdirAll(ds.WorkDir(), 0o755))
	assert.NoError(t, os.WriteFile(ds.ShardPath(0), content[ds.ShardName(0)], 0o644))
	// Same size as the real content, but different bytes
	corrupt := append([]byte(nil), content[ds.ShardName(1)]...)
	corrupt[0] = '!'
	assert.NoError(t, os.WriteFile(ds.ShardPath(1), corrupt, 0o644))

	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().Download(mock.Anything, mock.Anything, files[1], mock.Anything).RunAndReturn(serve(content)).Once()
	remote.EXPECT().Download(mock.Anything, mock.Anything, files[2], mock.Anything).RunAndReturn(serve(content)).Once()

	f := &fetcher{remote: remote, workers: 3, retry: fastRetry, verify: true}
	assert.NoError(t, f.Fetch(context.Background(), ds, files))

	actual, err := os.ReadFile(ds.ShardPath(1))
	assert.NoError(t, err)
	assert.Equal(t, content[ds.ShardName(1)], actual)
}

func Test_Fetch_FirstFailureStopsSubmission(t *testing.T) {
	ds := newFetchDataset(t, 24)
	files, _ := listing(ds)

	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, archive.ErrFileNotFound).Once()

	f := &fetcher{remote: remote, workers: 1, retry: fastRetry, verify: true}
	err := f.Fetch(context.Background(), ds, files)

	var stageErr *StageError
	if assert.ErrorAs(t, err, &stageErr) {
		assert.Equal(t, 0, stageErr.Shard)
	}
}
