package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"grider-status-alerts/internal/config"
	"grider-status-alerts/internal/dashboard"
	"grider-status-alerts/internal/notify"
	"grider-status-alerts/internal/settings"
	"grider-status-alerts/internal/snapshot"
	"grider-status-alerts/internal/storage"
	"grider-status-alerts/internal/template"
)

type fetchResult struct {
	snap snapshot.Snapshot
	err  error
}

// scriptedFetcher returns its results in order and repeats the last one.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	idx     int
}

func (f *scriptedFetcher) FetchStatus(ctx context.Context) (snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[f.idx]
	if f.idx < len(f.results)-1 {
		f.idx++
	}
	return r.snap, r.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []template.Rendered
	fail bool
}

func (n *recordingNotifier) Notify(ctx context.Context, msg template.Rendered) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("webhook down")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingSamples struct {
	mu      sync.Mutex
	upserts []storage.StatusSample
}

func (r *recordingSamples) UpsertSample(ctx context.Context, sample storage.StatusSample) error {
	r.mu.Lock()
	r.upserts = append(r.upserts, sample)
	r.mu.Unlock()
	return nil
}

func (r *recordingSamples) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]storage.StatusSample, error) {
	return nil, nil
}

func (r *recordingSamples) ListRecentSamples(ctx context.Context, limit int) ([]storage.StatusSample, error) {
	return nil, nil
}

func (r *recordingSamples) CountSamples(ctx context.Context) (int64, error) { return 0, nil }

type memSettingsStore struct {
	val *settings.Settings
}

func (m *memSettingsStore) Load(ctx context.Context) (settings.Settings, bool, error) {
	if m.val == nil {
		return settings.Settings{}, false, nil
	}
	return *m.val, true, nil
}

func (m *memSettingsStore) Save(ctx context.Context, s settings.Settings) error {
	m.val = &s
	return nil
}

func okSnap(score, completed int, riders ...snapshot.Rider) snapshot.Snapshot {
	now := time.Now().UTC()
	return snapshot.Snapshot{
		Score:          score,
		Completed:      completed,
		AcceptanceRate: decimal.NewFromFloat(92.5),
		Riders:         riders,
		Timestamp:      now,
		FetchedAt:      now,
	}
}

type harness struct {
	svc      *Service
	fetcher  *scriptedFetcher
	notifier *recordingNotifier
	samples  *recordingSamples
	mgr      *settings.Manager
	view     *dashboard.View
	toasts   *notify.Queue
}

func newHarness(t *testing.T, results ...fetchResult) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.Scheduler.Interval = 30 * time.Second
	cfg.Notify.ScheduleEvery = 0
	cfg.Notify.IncomePerPoint = 120

	mgr := settings.NewManager(&memSettingsStore{}, 0, zerolog.Nop())
	mgr.Load(context.Background())

	h := &harness{
		fetcher:  &scriptedFetcher{results: results},
		notifier: &recordingNotifier{},
		samples:  &recordingSamples{},
		mgr:      mgr,
		view:     dashboard.NewView(),
		toasts:   notify.NewQueue(time.Minute, zerolog.Nop()),
	}
	t.Cleanup(h.toasts.Close)

	h.svc = New(cfg, nil, h.fetcher, snapshot.NewStore(), mgr, h.samples, h.notifier, h.toasts, h.view, zerolog.Nop())
	return h
}

func TestProcessTickRecoversAfterFailure(t *testing.T) {
	h := newHarness(t,
		fetchResult{snap: okSnap(92, 156, snapshot.Rider{Name: "김철수", Completed: 5})},
		fetchResult{err: errors.New("connection refused")},
		fetchResult{snap: okSnap(95, 158, snapshot.Rider{Name: "김철수", Completed: 6})},
	)
	ctx := context.Background()

	if err := h.svc.ProcessTick(ctx, false); err != nil {
		t.Fatalf("first tick failed: %v", err)
	}
	if got := h.view.Regions(); got.Status != dashboard.StatusOnline || !got.HasData || got.Score != 92 {
		t.Fatalf("after ok tick: %+v", got)
	}

	if err := h.svc.ProcessTick(ctx, false); err != nil {
		t.Fatalf("failing tick must not return an error: %v", err)
	}
	regions := h.view.Regions()
	if regions.Status != dashboard.StatusError {
		t.Fatalf("failed tick must degrade the indicator, got %s", regions.Status)
	}
	if !regions.HasData || regions.Score != 92 {
		t.Fatalf("failed tick must keep last-known-good data visible: %+v", regions)
	}
	if !strings.HasPrefix(h.view.StatusLine(), "오류:") {
		t.Fatalf("unexpected status line %q", h.view.StatusLine())
	}

	if err := h.svc.ProcessTick(ctx, false); err != nil {
		t.Fatalf("recovery tick failed: %v", err)
	}
	regions = h.view.Regions()
	if regions.Status != dashboard.StatusOnline || regions.Score != 95 {
		t.Fatalf("recovery tick must go back online with fresh data: %+v", regions)
	}
	if h.svc.State() != StateIdle {
		t.Fatalf("cycle must settle back to idle, got %s", h.svc.State())
	}
}

func TestProcessTickDispatchesOnlyOnChange(t *testing.T) {
	snap := okSnap(92, 156)
	h := newHarness(t, fetchResult{snap: snap}, fetchResult{snap: snap})
	ctx := context.Background()

	_ = h.svc.ProcessTick(ctx, false)
	if got := h.notifier.sentCount(); got != 1 {
		t.Fatalf("changed snapshot must dispatch once, got %d", got)
	}

	_ = h.svc.ProcessTick(ctx, false)
	if got := h.notifier.sentCount(); got != 1 {
		t.Fatalf("unchanged snapshot must not dispatch, got %d", got)
	}

	sent := h.notifier.sent[0]
	if !strings.Contains(sent.Content, "92점") {
		t.Fatalf("rendered content missing score: %q", sent.Content)
	}
	if !strings.Contains(sent.Content, "11,040원") {
		t.Fatalf("income must derive from score at the per-point rate: %q", sent.Content)
	}
}

func TestProcessTickManualSkipsChangeDispatch(t *testing.T) {
	h := newHarness(t, fetchResult{snap: okSnap(92, 156)})

	_ = h.svc.ProcessTick(context.Background(), true)
	if got := h.notifier.sentCount(); got != 0 {
		t.Fatalf("manual refresh must not dispatch, got %d", got)
	}
	if regions := h.view.Regions(); !regions.HasData {
		t.Fatal("manual refresh must still render the dashboard")
	}
}

func TestProcessTickScheduledDispatch(t *testing.T) {
	snap := okSnap(92, 156)
	h := newHarness(t, fetchResult{snap: snap})
	h.svc.scheduleEvery = 2
	h.mgr.Update(func(s *settings.Settings) {
		s.SendOnChange = false
		s.SendOnSchedule = true
	})

	ctx := context.Background()
	_ = h.svc.ProcessTick(ctx, false)
	if got := h.notifier.sentCount(); got != 0 {
		t.Fatalf("first tick must not reach the schedule boundary, got %d", got)
	}

	_ = h.svc.ProcessTick(ctx, false)
	if got := h.notifier.sentCount(); got != 1 {
		t.Fatalf("second tick must dispatch on schedule, got %d", got)
	}
}

func TestProcessTickFailureAlert(t *testing.T) {
	h := newHarness(t, fetchResult{err: errors.New("connection refused")})
	h.mgr.Update(func(s *settings.Settings) { s.SendOnAlert = true })

	_ = h.svc.ProcessTick(context.Background(), false)

	if got := h.notifier.sentCount(); got != 1 {
		t.Fatalf("alert must dispatch on failure, got %d", got)
	}
	if h.notifier.sent[0].Title != "🚨 G라이더 수집 오류" {
		t.Fatalf("unexpected alert title %q", h.notifier.sent[0].Title)
	}

	toast, ok := h.toasts.Current()
	if !ok || toast.Severity != notify.SeverityError {
		t.Fatalf("failure must post an error toast, got %+v ok=%v", toast, ok)
	}

	h.samples.mu.Lock()
	defer h.samples.mu.Unlock()
	if len(h.samples.upserts) != 1 || h.samples.upserts[0].Status != storage.SampleErrored {
		t.Fatalf("failure must persist an errored sample: %+v", h.samples.upserts)
	}
}

func TestProcessTickPersistsCompleteSample(t *testing.T) {
	h := newHarness(t, fetchResult{snap: okSnap(92, 156, snapshot.Rider{Name: "김철수", Completed: 5})})

	_ = h.svc.ProcessTick(context.Background(), false)

	h.samples.mu.Lock()
	defer h.samples.mu.Unlock()
	if len(h.samples.upserts) != 1 {
		t.Fatalf("expected one sample, got %d", len(h.samples.upserts))
	}
	sample := h.samples.upserts[0]
	if sample.Status != storage.SampleComplete || sample.TotalScore != 92 || sample.ActiveRiders != 1 {
		t.Fatalf("unexpected sample %+v", sample)
	}
	if !sample.Bucket.Equal(sample.Bucket.Truncate(30 * time.Second)) {
		t.Fatalf("bucket must align to the poll interval, got %s", sample.Bucket)
	}
}

func TestProcessTickRendersPreview(t *testing.T) {
	h := newHarness(t, fetchResult{snap: okSnap(92, 156)})

	_ = h.svc.ProcessTick(context.Background(), false)

	preview := h.view.Regions().Preview
	if preview.Title == "" || !strings.Contains(preview.Content, "92점") {
		t.Fatalf("preview must carry the rendered message: %+v", preview)
	}
}

func TestDispatchFailurePostsToast(t *testing.T) {
	h := newHarness(t, fetchResult{snap: okSnap(92, 156)})
	h.notifier.fail = true

	_ = h.svc.ProcessTick(context.Background(), false)

	toast, ok := h.toasts.Current()
	if !ok || toast.Text != "메시지 전송에 실패했습니다." {
		t.Fatalf("failed dispatch must surface a toast, got %+v ok=%v", toast, ok)
	}
}

func TestFormatChange(t *testing.T) {
	cases := []struct {
		delta int
		want  string
	}{
		{25, "+25"},
		{-3, "-3"},
		{0, "±0"},
		{15000, "+15,000"},
	}
	for _, tc := range cases {
		if got := formatChange(tc.delta); got != tc.want {
			t.Errorf("formatChange(%d) = %q, want %q", tc.delta, got, tc.want)
		}
	}
}
