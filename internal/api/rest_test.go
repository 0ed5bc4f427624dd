package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/api"
	"github.com/hbomb79/ytmeta/internal/api/datasets"
	"github.com/hbomb79/ytmeta/internal/api/runs"
	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/archive/archivetest"
	"github.com/hbomb79/ytmeta/internal/event"
	"github.com/hbomb79/ytmeta/internal/ingest"
	"github.com/hbomb79/ytmeta/internal/ingest/mocks"
	"github.com/hbomb79/ytmeta/internal/metrics"
	"github.com/hbomb79/ytmeta/internal/retry"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gotest.tools/v3/fs"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

const (
	date       = "2024-01-01"
	identifier = "YT-VIDEO-METADATA-2024-01-01"
)

// newGateway constructs a gateway backed by a real ingestion service. If
// no remote is provided, a fake archive publishing a two-shard dataset
// for 2024-01-01 is used.
func newGateway(t *testing.T, remote ingest.RemoteStore) *api.RestGateway {
	dir := fs.NewDir(t, "api")
	config := ingest.DefaultConfig()
	config.ShardCount = 2
	config.WorkDir = dir.Join("work")
	config.OutputDir = dir.Join("out")
	config.Retry = retry.Config{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}

	if remote == nil {
		srv := archivetest.NewServer(t)
		srv.AddFile(identifier, identifier+"-00.jsonl.gz", archivetest.Gzip([]byte("{\"id\":\"a\",\"like_count\":3}\n")))
		srv.AddFile(identifier, identifier+"-01.jsonl.gz", archivetest.Gzip([]byte("{\"id\":\"b\",\"title\":\"t\"}\n")))
		remote = archive.NewClient(archive.Config{BaseURL: srv.URL})
	}

	registry := prometheus.NewRegistry()
	service, err := ingest.New(config, remote, event.New(), metrics.New(registry))
	assert.NoError(t, err)

	return api.NewRestGateway(&api.RestConfig{HostAddr: "127.0.0.1:0"}, service, registry)
}

func do(gateway *api.RestGateway, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	gateway.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func Test_IngestAndStream(t *testing.T) {
	gateway := newGateway(t, nil)
	datasetPath := api.API_PREFIX + "/datasets/" + date

	rec := do(gateway, http.MethodGet, datasetPath+"/")
	assert.Equal(t, http.StatusNotFound, rec.Code, "artifact should not exist before ingestion")

	rec = do(gateway, http.MethodPost, datasetPath+"/ingest/")
	assert.Equal(t, http.StatusOK, rec.Code)
	run := decode[runs.Dto](t, rec)
	assert.Equal(t, "DONE", run.State)
	assert.Equal(t, identifier, run.Dataset)
	assert.Equal(t, date, run.Date)
	assert.EqualValues(t, 2, run.Records)
	assert.Equal(t, 2, run.Fetched)
	assert.Equal(t, 2, run.Decoded)
	assert.Nil(t, run.Error)
	assert.NotNil(t, run.Finished)

	rec = do(gateway, http.MethodGet, datasetPath+"/")
	assert.Equal(t, http.StatusOK, rec.Code)
	artifact := decode[datasets.ArtifactDto](t, rec)
	assert.Equal(t, date, artifact.Date)
	assert.Equal(t, identifier, artifact.Dataset)
	assert.True(t, strings.HasSuffix(artifact.Path, "video-metadata-with-lang-2024-01-01.jsonl"))

	rec = do(gateway, http.MethodGet, datasetPath+"/records")
	assert.Equal(t, http.StatusOK, rec.Code, "expected trailing slash to be added")
	assert.Equal(t, datasets.NDJSON_CONTENT_TYPE, rec.Header().Get("Content-Type"))
	assert.Equal(t, "{\"id\":\"a\"}\n{\"id\":\"b\",\"title\":\"t\"}\n", rec.Body.String())
	assert.EqualValues(t, rec.Body.Len(), artifact.Size)
}

func Test_Datasets_Errors(t *testing.T) {
	gateway := newGateway(t, nil)

	tests := []struct {
		summary         string
		method          string
		path            string
		expectedStatus  int
		expectedMessage string
	}{
		{"unknown remote dataset", http.MethodPost, "/datasets/2099-01-01/ingest/", http.StatusNotFound, "no data available for date 2099-01-01, pick another date"},
		{"invalid ingest date", http.MethodPost, "/datasets/yesterday/ingest/", http.StatusBadRequest, "invalid dataset date"},
		{"invalid artifact date", http.MethodGet, "/datasets/2024-13-01/", http.StatusBadRequest, "invalid dataset date"},
		{"missing artifact", http.MethodGet, "/datasets/2024-01-02/", http.StatusNotFound, "no artifact exists for this date"},
		{"missing records", http.MethodGet, "/datasets/2024-01-02/records/", http.StatusNotFound, "no artifact exists for this date"},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			rec := do(gateway, tt.method, api.API_PREFIX+tt.path)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec)["message"], tt.expectedMessage)
		})
	}
}

func Test_Ingest_RemoteError(t *testing.T) {
	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().ListFiles(mock.Anything, identifier).Return(nil, &archive.StatusError{URL: "x", StatusCode: http.StatusServiceUnavailable}).Once()

	rec := do(newGateway(t, remote), http.MethodPost, api.API_PREFIX+"/datasets/"+date+"/ingest/")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func Test_Ingest_Conflict(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	remote := mocks.NewMockRemoteStore(t)
	remote.EXPECT().ListFiles(mock.Anything, identifier).RunAndReturn(func(ctx context.Context, _ string) ([]archive.File, error) {
		close(entered)
		<-release
		return nil, archive.ErrItemNotFound
	}).Once()

	gateway := newGateway(t, remote)
	path := api.API_PREFIX + "/datasets/" + date + "/ingest/"

	first := make(chan *httptest.ResponseRecorder)
	go func() { first <- do(gateway, http.MethodPost, path) }()
	<-entered

	rec := do(gateway, http.MethodPost, path)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	assert.Equal(t, http.StatusNotFound, (<-first).Code)
}

func Test_Runs(t *testing.T) {
	gateway := newGateway(t, nil)

	rec := do(gateway, http.MethodGet, api.API_PREFIX+"/runs/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]runs.Dto](t, rec))

	do(gateway, http.MethodPost, api.API_PREFIX+"/datasets/2099-01-01/ingest/")
	do(gateway, http.MethodPost, api.API_PREFIX+"/datasets/"+date+"/ingest/")

	rec = do(gateway, http.MethodGet, api.API_PREFIX+"/runs/")
	assert.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]runs.Dto](t, rec)
	if assert.Len(t, all, 2) {
		assert.Equal(t, "FAILED", all[0].State)
		if assert.NotNil(t, all[0].Error) {
			assert.Contains(t, *all[0].Error, "no data available for date 2099-01-01")
		}
		assert.Equal(t, "DONE", all[1].State)

		rec = do(gateway, http.MethodGet, api.API_PREFIX+"/runs/"+all[1].Id.String()+"/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, all[1], decode[runs.Dto](t, rec))
	}

	tests := []struct {
		summary        string
		id             string
		expectedStatus int
	}{
		{"malformed id", "not-a-uuid", http.StatusBadRequest},
		{"unknown id", uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			rec := do(gateway, http.MethodGet, api.API_PREFIX+"/runs/"+tt.id+"/")
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func Test_Metrics(t *testing.T) {
	gateway := newGateway(t, nil)
	do(gateway, http.MethodPost, api.API_PREFIX+"/datasets/"+date+"/ingest/")

	rec := do(gateway, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ytmeta_runs_total{outcome="DONE"} 1`)
	assert.Contains(t, rec.Body.String(), "ytmeta_records_total 2")
}
