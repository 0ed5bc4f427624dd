package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/storage"
	"github.com/stretchr/testify/assert"
	"gotest.tools/v3/fs"
)

func newMergeDataset(t *testing.T, shards ...string) (dataset.Dataset, *fs.Dir) {
	dir := fs.NewDir(t, "merge")
	layout := dataset.Layout{
		Prefix:         "YT-VIDEO-METADATA",
		ArtifactPrefix: "video-metadata-with-lang",
		WorkDir:        dir.Join("work"),
		OutputDir:      dir.Join("out"),
		ShardCount:     len(shards),
	}

	ds, err := layout.Parse("2024-01-01")
	assert.NoError(t, err)
	assert.NoError(t, os.MkdirAll(ds.WorkDir(), 0o755))
	assert.NoError(t, os.MkdirAll(layout.OutputDir, 0o755))
	for i, content := range shards {
		assert.NoError(t, os.WriteFile(ds.DecodedPath(i), []byte(content), 0o644))
	}

	return ds, dir
}

func readArtifact(t *testing.T, ds dataset.Dataset) string {
	content, err := os.ReadFile(ds.ArtifactPath())
	assert.NoError(t, err)
	return string(content)
}

func assertNoTempFiles(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	for _, e := range entries {
		assert.False(t, storage.IsTemp(e.Name()), "unexpected temp file %s", e.Name())
	}
}

func Test_Merge_ShardOrderAndProjection(t *testing.T) {
	ds, _ := newMergeDataset(t,
		`{"id":"a","upload_date":"x","title":"t1"}`+"\n",
		`{"id":"b","title":"t2"}`+"\n",
	)

	m := &merger{exclude: NewFieldSet(DefaultExcludeFields...)}
	result, err := m.Merge(context.Background(), ds)
	assert.NoError(t, err)
	assert.Equal(t, "{\"id\":\"a\",\"title\":\"t1\"}\n{\"id\":\"b\",\"title\":\"t2\"}\n", readArtifact(t, ds))
	assert.Equal(t, []int64{1, 1}, result.ShardRecords)
	assert.EqualValues(t, 2, result.Records)
	assert.EqualValues(t, len(readArtifact(t, ds)), result.Bytes)
	assert.Equal(t, ds.ArtifactPath(), result.Path)
}

func Test_Merge_LineHandling(t *testing.T) {
	ds, _ := newMergeDataset(t,
		"",
		"{\"id\":\"b1\"}\r\n{\"id\":\"b2\"}",
		"{\"id\":\"c1\",\"long\":\""+strings.Repeat("x", 3*mergeReadBufferSize)+"\"}\n",
	)

	m := &merger{exclude: NewFieldSet()}
	result, err := m.Merge(context.Background(), ds)
	assert.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 1}, result.ShardRecords)

	lines := strings.Split(strings.TrimSuffix(readArtifact(t, ds), "\n"), "\n")
	if assert.Len(t, lines, 3) {
		assert.Equal(t, `{"id":"b1"}`, lines[0])
		assert.Equal(t, `{"id":"b2"}`, lines[1])
		assert.Len(t, lines[2], len(`{"id":"c1","long":""}`)+3*mergeReadBufferSize)
	}
}

func Test_Merge_RemovesStaleArtifact(t *testing.T) {
	ds, _ := newMergeDataset(t, `{"id":"new"}`+"\n")
	assert.NoError(t, os.WriteFile(ds.ArtifactPath(), []byte("{\"id\":\"old\"}\n{\"id\":\"older\"}\n"), 0o644))

	m := &merger{exclude: NewFieldSet()}
	_, err := m.Merge(context.Background(), ds)
	assert.NoError(t, err)
	assert.Equal(t, "{\"id\":\"new\"}\n", readArtifact(t, ds))
}

func Test_Merge_ParseFailure(t *testing.T) {
	ds, _ := newMergeDataset(t,
		`{"id":"a"}`+"\n",
		"{\"id\":\"b\"}\n{\"id\":\"c\"}\n{\"id\":\n",
	)
	assert.NoError(t, os.WriteFile(ds.ArtifactPath(), []byte("{\"id\":\"old\"}\n"), 0o644))

	m := &merger{exclude: NewFieldSet()}
	_, err := m.Merge(context.Background(), ds)

	assert.ErrorIs(t, err, ErrRecordParse)
	var stageErr *StageError
	if assert.ErrorAs(t, err, &stageErr) {
		assert.Equal(t, MERGING, stageErr.Stage)
		assert.Equal(t, 1, stageErr.Shard)
	}
	var parseErr *RecordParseError
	if assert.ErrorAs(t, err, &parseErr) {
		assert.Equal(t, 1, parseErr.Shard)
		assert.Equal(t, 3, parseErr.Line)
	}

	assert.NoFileExists(t, ds.ArtifactPath(), "expected failed merge to leave no artifact behind")
	assertNoTempFiles(t, filepath.Dir(ds.ArtifactPath()))
}

func Test_Merge_BlankLineIsFailure(t *testing.T) {
	ds, _ := newMergeDataset(t, "{\"id\":\"a\"}\n\n{\"id\":\"b\"}\n")

	m := &merger{exclude: NewFieldSet()}
	_, err := m.Merge(context.Background(), ds)

	var parseErr *RecordParseError
	if assert.ErrorAs(t, err, &parseErr) {
		assert.Equal(t, 0, parseErr.Shard)
		assert.Equal(t, 2, parseErr.Line)
	}
}

func Test_Merge_InvalidUTF8IsFailure(t *testing.T) {
	ds, _ := newMergeDataset(t, "{\"id\":\"a\"}\n{\"id\":\"b\xff\",\"title\":\"t\"}\n")

	m := &merger{exclude: NewFieldSet()}
	_, err := m.Merge(context.Background(), ds)

	assert.ErrorIs(t, err, ErrRecordParse)
	var parseErr *RecordParseError
	if assert.ErrorAs(t, err, &parseErr) {
		assert.Equal(t, 0, parseErr.Shard)
		assert.Equal(t, 2, parseErr.Line)
	}
	assert.NoFileExists(t, ds.ArtifactPath())
}

func Test_Merge_MissingShard(t *testing.T) {
	ds, _ := newMergeDataset(t, `{"id":"a"}`+"\n", "")
	assert.NoError(t, os.Remove(ds.DecodedPath(1)))

	m := &merger{exclude: NewFieldSet()}
	_, err := m.Merge(context.Background(), ds)

	assert.ErrorIs(t, err, ErrMerge)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NoFileExists(t, ds.ArtifactPath())
	assertNoTempFiles(t, filepath.Dir(ds.ArtifactPath()))
}

func Test_Merge_Idempotent(t *testing.T) {
	ds, _ := newMergeDataset(t,
		"{\"z\":1,\"a\":2,\"like_count\":3}\n{\"id\":\"x\"}\n",
		"{\"id\":\"y\",\"subtitles\":{}}\n",
	)

	m := &merger{exclude: NewFieldSet(DefaultExcludeFields...)}
	_, err := m.Merge(context.Background(), ds)
	assert.NoError(t, err)
	first := readArtifact(t, ds)

	_, err = m.Merge(context.Background(), ds)
	assert.NoError(t, err)
	assert.Equal(t, first, readArtifact(t, ds))
	assert.Equal(t, "{\"z\":1,\"a\":2}\n{\"id\":\"x\"}\n{\"id\":\"y\"}\n", first)
}
