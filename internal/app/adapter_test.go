package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gdl-bridge/internal/domain"
	"github.com/yourusername/gdl-bridge/internal/metrics"
	"github.com/yourusername/gdl-bridge/pkg/logger"
)

// fakeEngine replays a scripted job through the observer callbacks
type fakeEngine struct {
	validateErr error
	runErr      error
	messagesErr error
	status      int
	category    string
	paths       []string
	messages    []domain.Message
	progress    []domain.ProgressState

	// started is closed once the job reported its progress, Run then waits on release
	started chan struct{}
	release chan struct{}

	mu            sync.Mutex
	messagesCalls int
	lastOpts      domain.EngineOptions
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Validate(opts domain.EngineOptions) error { return e.validateErr }

func (e *fakeEngine) NewJob(url string, opts domain.EngineOptions, observer domain.JobObserver) domain.EngineJob {
	e.mu.Lock()
	e.lastOpts = opts
	e.mu.Unlock()
	return &fakeEngineJob{engine: e, observer: observer}
}

type fakeEngineJob struct {
	engine   *fakeEngine
	observer domain.JobObserver
}

func (j *fakeEngineJob) Run(ctx context.Context) (int, error) {
	e := j.engine
	if e.runErr != nil {
		return 0, e.runErr
	}
	for _, p := range e.progress {
		j.observer.OnProgress(p)
	}
	if e.started != nil {
		close(e.started)
		<-e.release
	}
	for _, path := range e.paths {
		j.observer.OnURLHandled(path)
	}
	j.observer.OnFinalize(e.status)
	return e.status, nil
}

func (j *fakeEngineJob) Messages(ctx context.Context) ([]domain.Message, error) {
	j.engine.mu.Lock()
	j.engine.messagesCalls++
	j.engine.mu.Unlock()
	return j.engine.messages, j.engine.messagesErr
}

func (j *fakeEngineJob) Category() string { return j.engine.category }

// mockJobRepo implements domain.JobRepository for testing
type mockJobRepo struct {
	mu      sync.Mutex
	records map[string]*domain.JobRecord
	media   []*domain.MediaRecord
	tags    map[string][]domain.ExtractedTag
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{records: make(map[string]*domain.JobRecord)}
}

func (m *mockJobRepo) SaveJob(record *domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.records[record.RunID] = &copied
	return nil
}

func (m *mockJobRepo) FindJob(runID string) (*domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[runID]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (m *mockJobRepo) ListJobs(state domain.JobState, limit int) ([]*domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.JobRecord
	for _, r := range m.records {
		if state == "" || r.State == state {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockJobRepo) IndexMedia(media []*domain.MediaRecord, tags map[string][]domain.ExtractedTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media = append(m.media, media...)
	m.tags = tags
	return nil
}

func (m *mockJobRepo) TagsForMedia(hash string) ([]domain.MediaTag, error) {
	return nil, nil
}

func (m *mockJobRepo) GetStats() (*domain.JobStats, error) {
	return &domain.JobStats{}, nil
}

type fakeTagger struct{}

func (fakeTagger) ExtractTags(entry domain.URLExtractor) ([]domain.ExtractedTag, error) {
	return []domain.ExtractedTag{domain.NewExtractedTag("general", "sky")}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyJobStarted(url string) { n.add("started") }

func (n *recordingNotifier) NotifyJobCompleted(url string, files int) { n.add("completed") }

func (n *recordingNotifier) NotifyJobFailed(url string, err error) { n.add("failed") }

func (n *recordingNotifier) add(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

const testURL = "https://danbooru.example/posts/1"

func threeFileEngine() *fakeEngine {
	return &fakeEngine{
		category: "danbooru",
		paths:    []string{"/dl/a.jpg", "/dl/b.jpg", "/dl/c.jpg"},
		messages: []domain.Message{
			{Kind: domain.MessageDirectory, Metadata: map[string]interface{}{"category": "danbooru"}},
			{Kind: domain.MessageURL, URL: "https://cdn.example/a.jpg", Metadata: map[string]interface{}{"id": float64(1)}},
			{Kind: domain.MessageURL, URL: "https://cdn.example/b.jpg", Metadata: map[string]interface{}{"id": float64(2)}},
			{Kind: domain.MessageURL, URL: "https://cdn.example/c.jpg", Metadata: map[string]interface{}{"id": float64(3)}},
		},
	}
}

func TestDownload_Success(t *testing.T) {
	engine := threeFileEngine()
	adapter := NewJobAdapter(engine, NewRegistry(), "/etc/gallery-dl.conf", "/dl", nil)

	summary, err := adapter.Download(context.Background(), testURL, "/dl", "")
	require.NoError(t, err)

	assert.Equal(t, "danbooru", summary.Extractor)
	assert.Equal(t, testURL, summary.BaseURL)
	require.Len(t, summary.URLExtractors, 3)
	assert.Equal(t, []string{"/dl/a.jpg", "/dl/b.jpg", "/dl/c.jpg"}, summary.Paths())
	assert.Equal(t, "https://cdn.example/b.jpg", summary.URLExtractors[1].URL)
	assert.Equal(t, "danbooru", summary.URLExtractors[2].Extractor)
	require.Len(t, summary.DirExtractors, 1)

	assert.Equal(t, domain.EngineOptions{ConfigPath: "/etc/gallery-dl.conf", BaseDir: "/dl"}, engine.lastOpts)
	assert.Empty(t, adapter.JobsStatus())
}

func TestDownload_DefaultsPathAndOverridesConfig(t *testing.T) {
	engine := threeFileEngine()
	adapter := NewJobAdapter(engine, NewRegistry(), "/etc/gallery-dl.conf", "/srv/media", nil)

	_, err := adapter.Download(context.Background(), testURL, "", "/home/u/custom.conf")
	require.NoError(t, err)
	assert.Equal(t, domain.EngineOptions{ConfigPath: "/home/u/custom.conf", BaseDir: "/srv/media"}, engine.lastOpts)
}

func TestDownload_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		url  string
		path string
	}{
		{name: "empty url", url: "  ", path: "/dl"},
		{name: "relative path", url: testURL, path: "dl/out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			adapter := NewJobAdapter(threeFileEngine(), registry, "", "", nil)

			_, err := adapter.Download(context.Background(), tt.url, tt.path, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Equal(t, 0, registry.Len())
		})
	}
}

func TestDownload_EngineValidationFails(t *testing.T) {
	engine := threeFileEngine()
	engine.validateErr = errors.New("gallery-dl binary not found")
	registry := NewRegistry()
	adapter := NewJobAdapter(engine, registry, "", "/dl", nil)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "binary not found")
	assert.Equal(t, 0, registry.Len())
}

func TestDownload_NonZeroExit(t *testing.T) {
	engine := threeFileEngine()
	engine.status = 4
	adapter := NewJobAdapter(engine, NewRegistry(), "", "/dl", nil)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	require.Error(t, err)

	var execErr *domain.ExecutionFailedError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 4, execErr.Status)
	assert.Equal(t, testURL, execErr.URL)
	assert.Equal(t, 0, engine.messagesCalls)
}

func TestDownload_NoResults(t *testing.T) {
	engine := &fakeEngine{
		category: "danbooru",
		messages: []domain.Message{
			{Kind: domain.MessageDirectory, Metadata: map[string]interface{}{}},
		},
	}
	adapter := NewJobAdapter(engine, NewRegistry(), "", "/dl", nil)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	assert.ErrorIs(t, err, domain.ErrNoResults)
}

func TestDownload_CountMismatch(t *testing.T) {
	engine := &fakeEngine{
		category: "danbooru",
		paths:    []string{"/dl/a.jpg", "/dl/b.jpg"},
		messages: []domain.Message{
			{Kind: domain.MessageURL, URL: "https://cdn.example/a.jpg", Metadata: map[string]interface{}{}},
		},
	}
	adapter := NewJobAdapter(engine, NewRegistry(), "", "/dl", nil)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	require.Error(t, err)

	var mismatch *domain.CountMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Paths)
	assert.Equal(t, 1, mismatch.URLs)
}

func TestDownload_NonZeroExitWinsOverCountMismatch(t *testing.T) {
	engine := &fakeEngine{
		category: "danbooru",
		status:   1,
		paths:    []string{"/dl/a.jpg"},
		messages: []domain.Message{
			{Kind: domain.MessageURL, URL: "https://cdn.example/a.jpg", Metadata: map[string]interface{}{}},
			{Kind: domain.MessageURL, URL: "https://cdn.example/b.jpg", Metadata: map[string]interface{}{}},
		},
	}
	adapter := NewJobAdapter(engine, NewRegistry(), "", "/dl", nil)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	assert.ErrorIs(t, err, domain.ErrExecutionFailed)
	assert.NotErrorIs(t, err, domain.ErrCountMismatch)
	assert.Equal(t, 0, engine.messagesCalls)
}

func TestDownload_RunErrorFinalizesJob(t *testing.T) {
	engine := threeFileEngine()
	engine.runErr = errors.New("exec: not started")
	registry := NewRegistry()
	adapter := NewJobAdapter(engine, registry, "", "/dl", nil)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	require.Error(t, err)
	assert.Equal(t, metrics.OutcomeError, Outcome(err))

	jobs := registry.Clear()
	assert.Empty(t, jobs, "job must be finalized after a failed run")
}

func TestDownload_MessagesError(t *testing.T) {
	engine := threeFileEngine()
	engine.messagesErr = errors.New("dump failed")
	adapter := NewJobAdapter(engine, NewRegistry(), "", "/dl", nil)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dump failed")
}

func TestJobsStatus_DuringRun(t *testing.T) {
	engine := threeFileEngine()
	engine.progress = []domain.ProgressState{
		{BytesTotal: 100, BytesDownloaded: 20, BytesPerSecond: 5},
		{BytesTotal: 100, BytesDownloaded: 50, BytesPerSecond: 10},
	}
	engine.started = make(chan struct{})
	engine.release = make(chan struct{})
	adapter := NewJobAdapter(engine, NewRegistry(), "", "/dl", nil)

	done := make(chan error, 1)
	go func() {
		_, err := adapter.Download(context.Background(), testURL, "/dl", "")
		done <- err
	}()

	select {
	case <-engine.started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	statuses := adapter.JobsStatus()
	require.Len(t, statuses, 1)
	assert.Equal(t, domain.ProgressState{BytesTotal: 100, BytesDownloaded: 50, BytesPerSecond: 10}, statuses[domain.JobID(testURL)])

	data, err := adapter.JobsStatusJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"`+domain.JobID(testURL)+`":{"bytes_total":100,"bytes_downloaded":50,"bytes_per_second":10}}`, string(data))

	close(engine.release)
	require.NoError(t, <-done)

	assert.Empty(t, adapter.JobsStatus())
}

func TestDownloadJSON_Shape(t *testing.T) {
	adapter := NewJobAdapter(threeFileEngine(), NewRegistry(), "", "/dl", nil)

	data, err := adapter.DownloadJSON(context.Background(), testURL, "/dl", "")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "danbooru", decoded["extractor"])
	assert.Equal(t, testURL, decoded["base_url"])
	entries := decoded["url_extractors"].([]interface{})
	require.Len(t, entries, 3)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "/dl/a.jpg", first["path"])
	assert.Equal(t, "https://cdn.example/a.jpg", first["url"])
	dirs := decoded["dir_extractors"].([]interface{})
	require.Len(t, dirs, 1)
	assert.Equal(t, float64(domain.MessageDirectory), dirs[0].([]interface{})[0])
}

func TestDownload_RecordsHistoryAndIndexesMedia(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.jpg")}
	require.NoError(t, os.WriteFile(paths[0], []byte("image-a"), 0644))
	require.NoError(t, os.WriteFile(paths[1], []byte("image-b"), 0644))

	engine := &fakeEngine{
		category: "danbooru",
		paths:    paths,
		messages: []domain.Message{
			{Kind: domain.MessageURL, URL: "https://cdn.example/a.jpg", Metadata: map[string]interface{}{"tag_string_general": "sky"}},
			{Kind: domain.MessageURL, URL: "https://cdn.example/b.jpg", Metadata: map[string]interface{}{"tag_string_general": "sky"}},
		},
	}
	repo := newMockJobRepo()
	notifier := &recordingNotifier{}
	cache := NewSummaryCache(4, time.Minute)

	adapter := NewJobAdapter(engine, NewRegistry(), "", dir, nil)
	adapter.SetRepository(repo)
	adapter.SetTagExtractor(fakeTagger{})
	adapter.SetNotifier(notifier)
	adapter.SetSummaryCache(cache)

	summary, err := adapter.Download(context.Background(), testURL, dir, "")
	require.NoError(t, err)

	require.Len(t, repo.records, 1)
	for _, record := range repo.records {
		assert.Equal(t, domain.JobSucceeded, record.State)
		assert.Equal(t, 2, record.FileCount)
		assert.Equal(t, "danbooru", record.Extractor)
		assert.NotNil(t, record.FinishedAt)
	}

	require.Len(t, repo.media, 2)
	hashA, err := HashFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, hashA, repo.media[0].Hash)
	assert.Contains(t, repo.media[0].Metadata, "tag_string_general")
	assert.Len(t, repo.tags, 2)
	assert.Equal(t, "sky", repo.tags[hashA][0].Name)

	cached, ok := adapter.CachedSummary(domain.JobID(testURL))
	require.True(t, ok)
	assert.Same(t, summary, cached)

	assert.Equal(t, []string{"started", "completed"}, notifier.events)
}

func TestDownload_IndexingDisabledKeepsHistory(t *testing.T) {
	repo := newMockJobRepo()
	adapter := NewJobAdapter(threeFileEngine(), NewRegistry(), "", "/dl", nil)
	adapter.SetRepository(repo)
	adapter.SetIndexing(false)

	_, err := adapter.Download(context.Background(), testURL, "/dl", "")
	require.NoError(t, err)

	assert.Len(t, repo.records, 1)
	assert.Empty(t, repo.media)
}

func TestDownload_FailureRecordsError(t *testing.T) {
	engine := threeFileEngine()
	engine.status = 1
	repo := newMockJobRepo()
	notifier := &recordingNotifier{}
	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: t.TempDir()})
	require.NoError(t, err)
	defer ml.Close()

	adapter := NewJobAdapter(engine, NewRegistry(), "", "/dl", nil)
	adapter.SetRepository(repo)
	adapter.SetNotifier(notifier)
	adapter.SetMultiLogger(ml)

	_, err = adapter.Download(context.Background(), testURL, "/dl", "")
	require.Error(t, err)

	require.Len(t, repo.records, 1)
	for _, record := range repo.records {
		assert.Equal(t, domain.JobFailed, record.State)
		assert.Equal(t, 1, record.ExitStatus)
		assert.Contains(t, record.ErrorMessage, "did not exit with 0")
	}
	assert.Empty(t, repo.media)
	assert.Equal(t, []string{"started", "failed"}, notifier.events)

	_, ok := adapter.CachedSummary(domain.JobID(testURL))
	assert.False(t, ok)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, metrics.OutcomeSucceeded},
		{&domain.ExecutionFailedError{URL: testURL, Status: 1}, metrics.OutcomeExecutionFailed},
		{&domain.NoResultsError{URL: testURL}, metrics.OutcomeNoResults},
		{&domain.CountMismatchError{Paths: 1, URLs: 2}, metrics.OutcomeCountMismatch},
		{errors.New("boom"), metrics.OutcomeError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Outcome(tt.err))
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0644))

	hashA, err := HashFile(a)
	require.NoError(t, err)
	hashB, err := HashFile(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 16)

	_, err = HashFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSummaryCache(t *testing.T) {
	cache := NewSummaryCache(1, 0)
	first := &domain.ExtractionSummary{BaseURL: "https://example.com/1"}
	second := &domain.ExtractionSummary{BaseURL: "https://example.com/2"}

	cache.Add(first.BaseURL, first)
	cache.Add(second.BaseURL, second)

	_, ok := cache.Get(domain.JobID(first.BaseURL))
	assert.False(t, ok)
	got, ok := cache.Get(domain.JobID(second.BaseURL))
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, cache.Len())
}
