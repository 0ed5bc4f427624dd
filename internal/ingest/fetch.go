package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/retry"
	"github.com/hbomb79/ytmeta/internal/storage"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/hbomb79/ytmeta/pkg/worker"
)

type (
	// RemoteStore is the remote archive holding the dataset shards.
	RemoteStore interface {
		ListFiles(ctx context.Context, identifier string) ([]archive.File, error)
		Download(ctx context.Context, identifier string, file archive.File, dst io.Writer) (*archive.Transfer, error)
	}

	// shardHooks are notified as the shards of a dataset progress
	// through a stage. Both are called concurrently from pool workers.
	shardHooks struct {
		completed func(shard int, bytes int64)
		retried   func(shard int, err error)
	}

	// fetcher retrieves every shard of a dataset in to the datasets
	// working directory, using a bounded pool of workers.
	fetcher struct {
		remote  RemoteStore
		workers int
		retry   retry.Config
		verify  bool
		hooks   shardHooks
	}
)

// Fetch downloads all shards of the dataset provided. The files are the
// remote item listing (see RemoteStore.ListFiles), which is used to find
// each shard's expected size and checksum.
//
// The first shard to fail stops any further shards from being fetched,
// and its failure (a *StageError) is returned once all in-flight
// downloads have stopped.
func (fetcher *fetcher) Fetch(ctx context.Context, ds dataset.Dataset, files []archive.File) error {
	if err := os.MkdirAll(ds.WorkDir(), os.ModeDir|os.ModePerm); err != nil {
		return stageErr(ds.Identifier(), FETCHING, -1, ErrShardFetch, err)
	}

	tasks := make([]worker.Task, 0, ds.ShardCount())
	for i := 0; i < ds.ShardCount(); i++ {
		shard := i
		tasks = append(tasks, worker.Task{
			Label:   ds.ShardName(shard),
			Execute: func(ctx context.Context) error { return fetcher.fetchShard(ctx, ds, files, shard) },
		})
	}

	pool := worker.NewWorkerPool(fmt.Sprintf("fetch-%s", ds.DateString()), fetcher.workers)
	return unwrapTaskError(pool.Run(ctx, tasks))
}

func (fetcher *fetcher) fetchShard(ctx context.Context, ds dataset.Dataset, files []archive.File, shard int) error {
	name := ds.ShardName(shard)
	file, ok := archive.FindFile(files, name)
	if !ok {
		return stageErr(ds.Identifier(), FETCHING, shard, ErrShardFetch, fmt.Errorf("%s is missing from the remote item", name))
	}

	path := ds.ShardPath(shard)
	if fetcher.isFetched(path, file) {
		log.Emit(logger.DEBUG, "Shard %s already present locally, skipping download\n", name)
		fetcher.hooks.complete(shard, 0)
		return nil
	}

	var transferred int64
	notify := func(attempt int, err error, next time.Duration) {
		log.Emit(logger.WARNING, "Download of shard %s failed (attempt %d), retrying in %s: %v\n", name, attempt, next, err)
		fetcher.hooks.retry(shard, err)
	}
	err := retry.Do(ctx, fetcher.retry, isTransientFetchError, notify, func(ctx context.Context) error {
		n, err := fetcher.download(ctx, ds, file, path)
		transferred = n
		return err
	})
	if err != nil {
		return stageErr(ds.Identifier(), FETCHING, shard, ErrShardFetch, err)
	}

	log.Emit(logger.VERBOSE, "Fetched shard %s (%d bytes)\n", name, transferred)
	fetcher.hooks.complete(shard, transferred)
	return nil
}

// download streams the file to the path provided. The shard only
// appears at the path once the transfer is complete and verified.
func (fetcher *fetcher) download(ctx context.Context, ds dataset.Dataset, file archive.File, path string) (int64, error) {
	w, err := storage.NewAtomicWriter(path)
	if err != nil {
		return 0, retry.Permanent(err)
	}
	defer w.Abort()

	transfer, err := fetcher.remote.Download(ctx, ds.Identifier(), file, w)
	if err != nil {
		return 0, err
	}
	if fetcher.verify {
		if err := file.Verify(transfer.MD5); err != nil {
			return 0, err
		}
	}

	if err := w.Commit(); err != nil {
		return 0, retry.Permanent(err)
	}

	return transfer.Bytes, nil
}

// isFetched returns true if the file at the path provided is a complete
// copy of the remote file, as determined by its size (and checksum, if
// verification is enabled).
func (fetcher *fetcher) isFetched(path string, file archive.File) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() != file.Size {
		return false
	}
	if !fetcher.verify || file.MD5 == "" {
		return true
	}

	sum, _, err := archive.HashFile(path)
	if err != nil {
		return false
	}

	return file.Verify(sum) == nil
}

// isTransientFetchError returns false for failures which will not be
// resolved by trying the download again.
func isTransientFetchError(err error) bool {
	if errors.Is(err, archive.ErrFileNotFound) {
		return false
	}

	var statusErr *archive.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 && statusErr.StatusCode != http.StatusTooManyRequests {
		return false
	}

	return retry.IsRetryable(err)
}

// unwrapTaskError strips the worker pool error wrapping from a stage
// failure so that callers receive the *StageError directly.
func unwrapTaskError(err error) error {
	if err == nil {
		return nil
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr
	}

	return err
}

func (hooks shardHooks) complete(shard int, bytes int64) {
	if hooks.completed != nil {
		hooks.completed(shard, bytes)
	}
}

func (hooks shardHooks) retry(shard int, err error) {
	if hooks.retried != nil {
		hooks.retried(shard, err)
	}
}
