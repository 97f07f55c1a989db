package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"grider-status-alerts/internal/config"
	"grider-status-alerts/internal/dashboard"
	"grider-status-alerts/internal/feed"
	"grider-status-alerts/internal/notify"
	"grider-status-alerts/internal/scheduler"
	"grider-status-alerts/internal/settings"
	"grider-status-alerts/internal/snapshot"
	"grider-status-alerts/internal/storage"
	"grider-status-alerts/internal/template"
)

// State tracks where a refresh cycle currently is. Transitions run
// Idle -> Fetching -> {Rendering, Failed} -> Idle on every tick; the
// scheduler's single consumer loop guarantees no two cycles overlap.
type State int32

// Refresh cycle states.
const (
	StateIdle State = iota
	StateFetching
	StateRendering
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateRendering:
		return "rendering"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Service orchestrates fetching, diffing, rendering, persistence, and
// notification dispatch.
type Service struct {
	sched    *scheduler.Scheduler
	fetcher  feed.StatusFetcher
	store    *snapshot.Store
	settings *settings.Manager
	samples  storage.SampleStore
	notifier notify.Notifier
	toasts   *notify.Queue
	view     *dashboard.View
	logger   zerolog.Logger

	state          atomic.Int32
	interval       time.Duration
	scheduleEvery  int
	incomePerPoint int64
	tickCount      int
}

// New constructs the relay service.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetcher feed.StatusFetcher, store *snapshot.Store, settingsMgr *settings.Manager, samples storage.SampleStore, notifier notify.Notifier, toasts *notify.Queue, view *dashboard.View, logger zerolog.Logger) *Service {
	return &Service{
		sched:          sched,
		fetcher:        fetcher,
		store:          store,
		settings:       settingsMgr,
		samples:        samples,
		notifier:       notifier,
		toasts:         toasts,
		view:           view,
		logger:         logger.With().Str("component", "service").Logger(),
		interval:       cfg.Scheduler.Interval,
		scheduleEvery:  cfg.Notify.ScheduleEvery,
		incomePerPoint: cfg.Notify.IncomePerPoint,
	}
}

// Run begins the refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.sched.Run(ctx, s.ProcessTick)
}

// Trigger requests an out-of-band refresh through the same cycle the timer
// drives.
func (s *Service) Trigger() bool {
	if s.sched == nil {
		return false
	}
	return s.sched.Trigger()
}

// State reports the current refresh cycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(state State) {
	s.state.Store(int32(state))
}

// ProcessTick runs a single refresh cycle. Fetch and parse failures become a Failed
// state plus an error notification; they never stop the loop.
func (s *Service) ProcessTick(ctx context.Context, manual bool) error {
	s.setState(StateFetching)
	defer s.setState(StateIdle)

	now := time.Now().UTC()
	if s.view != nil {
		s.view.Touch(now)
	}

	snap, err := s.fetcher.FetchStatus(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-fetch; discard whatever arrived.
			return ctx.Err()
		}
		snap = snapshot.Errored(err.Error(), now)
	}

	if !snap.OK() {
		s.handleFailure(ctx, snap, manual)
		return nil
	}

	prev, hadPrev := s.store.Current()
	changed := s.store.Ingest(snap)

	s.setState(StateRendering)
	if s.view != nil {
		s.view.SetStatus(dashboard.StatusOnline, "", snap.Timestamp)
	}

	var rendered template.Rendered
	renderedOK := false
	if changed {
		rendered, renderedOK = s.renderViews(snap, prev, hadPrev)
	}

	s.persistSample(ctx, snap)

	cfgSettings := s.settings.Current()
	if changed && cfgSettings.SendOnChange && renderedOK && !manual {
		s.dispatch(ctx, rendered)
	}

	if !manual {
		s.tickCount++
		if cfgSettings.SendOnSchedule && s.scheduleEvery > 0 && s.tickCount%s.scheduleEvery == 0 {
			scheduled, ok := rendered, renderedOK
			if !ok {
				scheduled, ok = s.renderMessage(snap, prev, hadPrev)
			}
			if ok {
				s.dispatch(ctx, scheduled)
			}
		}
	}

	s.logger.Info().
		Bool("changed", changed).
		Bool("manual", manual).
		Int("score", snap.Score).
		Int("completed", snap.Completed).
		Int("active_riders", snap.ActiveRiderCount()).
		Msg("refresh cycle complete")
	return nil
}

// handleFailure moves the cycle into Failed: degraded status indicator,
// error toast, errored sample row. Previously rendered data stays visible.
func (s *Service) handleFailure(ctx context.Context, snap snapshot.Snapshot, manual bool) {
	s.setState(StateFailed)

	s.logger.Error().Str("reason", snap.Err).Bool("manual", manual).Msg("refresh cycle failed")
	if s.view != nil {
		s.view.SetStatus(dashboard.StatusError, snap.Err, time.Time{})
		s.view.AppendActivity(dashboard.ActivityEntry{Time: snap.FetchedAt, Text: snap.Err, Outcome: "error"})
	}
	if s.toasts != nil {
		s.toasts.Post("데이터 로드에 실패했습니다: "+snap.Err, notify.SeverityError)
	}

	// Error states still get ingested so the stored current snapshot
	// reflects reality; only rendering is skipped.
	s.store.Ingest(snap)
	s.persistSample(ctx, snap)

	if s.settings.Current().SendOnAlert {
		s.dispatch(ctx, template.Rendered{
			Title:   "🚨 G라이더 수집 오류",
			Content: snap.Err,
			Footer:  "📅 " + snap.FetchedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// renderViews refreshes the stat regions, message preview, and activity log
// for a changed snapshot.
func (s *Service) renderViews(snap, prev snapshot.Snapshot, hadPrev bool) (template.Rendered, bool) {
	if s.view != nil {
		s.view.ApplySnapshot(snap)
		s.view.AppendActivity(dashboard.ActivityEntry{Time: snap.FetchedAt, Text: "데이터 수집 완료", Outcome: "success"})
	}

	rendered, ok := s.renderMessage(snap, prev, hadPrev)
	if ok && s.view != nil {
		s.view.SetPreview(rendered)
	}
	if s.toasts != nil {
		s.toasts.Post("대시보드 데이터가 업데이트되었습니다.", notify.SeveritySuccess)
	}
	return rendered, ok
}

// renderMessage resolves the configured template and substitutes the
// snapshot's fields. A malformed custom template surfaces to the user and
// skips dispatch; it is not retried.
func (s *Service) renderMessage(snap, prev snapshot.Snapshot, hadPrev bool) (template.Rendered, bool) {
	tpl, err := s.settings.Current().ResolveTemplate()
	if err != nil {
		s.logger.Warn().Err(err).Msg("template resolve failed")
		if s.toasts != nil {
			s.toasts.Post("JSON 형식 오류: "+err.Error(), notify.SeverityError)
		}
		return template.Rendered{}, false
	}
	return template.Render(tpl, s.buildFields(snap, prev, hadPrev)), true
}

// buildFields assembles the substitution values. Fields the feed cannot
// supply are simply omitted; their placeholders render literally.
func (s *Service) buildFields(snap, prev snapshot.Snapshot, hadPrev bool) *template.Fields {
	fields := template.NewFields().
		Set("score", snap.Score).
		Set("completed_missions", snap.Completed).
		Set("active_riders", snap.ActiveRiderCount()).
		Set("acceptance_rate", snap.AcceptanceRate.StringFixed(1))

	income := s.estimatedIncome(snap)
	fields.Set("estimated_income", humanize.Comma(income))

	if hadPrev && prev.OK() {
		fields.Set("score_change", formatChange(snap.Score-prev.Score))
		fields.Set("mission_change", formatChange(snap.Completed-prev.Completed))
		fields.Set("riders_change", formatChange(snap.ActiveRiderCount()-prev.ActiveRiderCount()))
		fields.Set("income_change", formatChange64(s.estimatedIncome(snap)-s.estimatedIncome(prev)))
	}

	fields.Set("timestamp", snap.Timestamp.Format("2006-01-02 15:04:05"))
	fields.Set("next_update", snap.FetchedAt.Add(s.interval).Format("2006-01-02 15:04:05"))
	return fields
}

// estimatedIncome prefers the feed's own figure and otherwise derives it
// from the score at the configured per-point rate.
func (s *Service) estimatedIncome(snap snapshot.Snapshot) int64 {
	if snap.EstimatedIncome != nil {
		return *snap.EstimatedIncome
	}
	return int64(snap.Score) * s.incomePerPoint
}

func (s *Service) dispatch(ctx context.Context, msg template.Rendered) {
	if s.notifier == nil {
		s.logger.Debug().Msg("no notifier configured; dispatch skipped")
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error().Err(err).Msg("failed to dispatch message")
		if s.toasts != nil {
			s.toasts.Post("메시지 전송에 실패했습니다.", notify.SeverityError)
		}
	}
}

func (s *Service) persistSample(ctx context.Context, snap snapshot.Snapshot) {
	if s.samples == nil {
		return
	}

	bucket := snap.FetchedAt.Truncate(s.interval)
	sample := storage.StatusSample{
		Bucket: bucket,
		Status: SampleStatus(snap),
	}

	if snap.OK() {
		sample.TotalScore = snap.Score
		sample.TotalCompleted = snap.Completed
		sample.AcceptancePct = snap.AcceptanceRate
		sample.ActiveRiders = snap.ActiveRiderCount()
		if raw, err := json.Marshal(snap.Riders); err == nil {
			sample.Riders = raw
		}
	} else {
		reason := snap.Err
		sample.Error = &reason
	}

	if err := s.samples.UpsertSample(ctx, sample); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to upsert sample")
	}
}

// SampleStatus maps a snapshot tag onto the stored sample status.
func SampleStatus(snap snapshot.Snapshot) string {
	if snap.OK() {
		return storage.SampleComplete
	}
	return storage.SampleErrored
}

func formatChange(delta int) string {
	return formatChange64(int64(delta))
}

func formatChange64(delta int64) string {
	switch {
	case delta > 0:
		return "+" + humanize.Comma(delta)
	case delta < 0:
		return humanize.Comma(delta)
	default:
		return "±0"
	}
}
