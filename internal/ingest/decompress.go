package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/storage"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/hbomb79/ytmeta/pkg/worker"
	"github.com/klauspost/compress/gzip"
)

// decompressor expands the gzip shards of a dataset in to their decoded
// siblings, using a bounded pool of workers.
type decompressor struct {
	workers int
	hooks   shardHooks
}

// Decompress decodes every shard of the dataset provided. Existing
// decoded files are overwritten. The first failure stops any further
// shards from being decoded and is returned as a *StageError.
func (decompressor *decompressor) Decompress(ctx context.Context, ds dataset.Dataset) error {
	tasks := make([]worker.Task, 0, ds.ShardCount())
	for i := 0; i < ds.ShardCount(); i++ {
		shard := i
		tasks = append(tasks, worker.Task{
			Label: ds.DecodedName(shard),
			Execute: func(ctx context.Context) error {
				n, err := DecompressFile(ctx, ds.ShardPath(shard), ds.DecodedPath(shard))
				if err != nil {
					return stageErr(ds.Identifier(), DECOMPRESSING, shard, ErrDecode, err)
				}

				log.Emit(logger.VERBOSE, "Decoded shard %s (%d bytes)\n", ds.ShardName(shard), n)
				decompressor.hooks.complete(shard, n)
				return nil
			},
		})
	}

	pool := worker.NewWorkerPool(fmt.Sprintf("decode-%s", ds.DateString()), decompressor.workers)
	return unwrapTaskError(pool.Run(ctx, tasks))
}

// DecompressFile streams the gzip file at src in to dst, returning the
// number of decoded bytes written. The destination only appears once
// the source has been decoded in full; a truncated or corrupt source
// leaves nothing behind at dst.
func DecompressFile(ctx context.Context, src string, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid gzip stream: %w", src, err)
	}
	defer gz.Close()

	out, err := storage.NewAtomicWriter(dst)
	if err != nil {
		return 0, err
	}
	defer out.Abort()

	n, err := io.Copy(out, &contextReader{ctx: ctx, r: gz})
	if err != nil {
		return n, fmt.Errorf("failed to decode %s after %d bytes: %w", src, n, err)
	}

	if err := out.Commit(); err != nil {
		return n, err
	}

	return n, nil
}

// contextReader stops reading once its context is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
