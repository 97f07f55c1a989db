package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"grider-status-alerts/internal/snapshot"
	"grider-status-alerts/internal/template"
)

// SendTest renders the configured template and dispatches it through the
// webhook once, mirroring the dashboard's test-message button.
func (a *App) SendTest(ctx context.Context) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("notify.webhook is not enabled")
	}

	rendered, err := a.renderCurrent(ctx)
	if err != nil {
		return err
	}

	if err := notifier.Notify(ctx, rendered); err != nil {
		return fmt.Errorf("send test message: %w", err)
	}
	a.Logger.Info().Msg("테스트 메시지가 성공적으로 전송되었습니다")
	return nil
}

// Preview renders the configured template to stdout without dispatching.
func (a *App) Preview(ctx context.Context) error {
	rendered, err := a.renderCurrent(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, rendered.Title)
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, rendered.Content)
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, rendered.Footer)
	return nil
}

// renderCurrent renders the configured template against a live snapshot,
// falling back to representative sample values when the feed is
// unreachable (the dashboard previewed with the same figures).
func (a *App) renderCurrent(ctx context.Context) (template.Rendered, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return template.Rendered{}, err
	}
	if closeStore != nil {
		defer closeStore()
	}

	settingsMgr := a.newSettingsManager(store)
	current := settingsMgr.Load(ctx)

	tpl, err := current.ResolveTemplate()
	if err != nil {
		return template.Rendered{}, err
	}

	fields := a.sampleFields()
	if a.Config.Feed.BaseURL != "" {
		snap, fetchErr := a.newFetcher().FetchStatus(ctx)
		if fetchErr == nil && snap.OK() {
			fields = a.snapshotFields(snap)
		} else if fetchErr != nil {
			a.Logger.Warn().Err(fetchErr).Msg("live fetch failed; using sample fields")
		} else {
			a.Logger.Warn().Str("reason", snap.Err).Msg("feed reported an error; using sample fields")
		}
	}

	return template.Render(tpl, fields), nil
}

func (a *App) snapshotFields(snap snapshot.Snapshot) *template.Fields {
	income := int64(snap.Score) * a.Config.Notify.IncomePerPoint
	if snap.EstimatedIncome != nil {
		income = *snap.EstimatedIncome
	}
	return template.NewFields().
		Set("score", snap.Score).
		Set("completed_missions", snap.Completed).
		Set("active_riders", snap.ActiveRiderCount()).
		Set("acceptance_rate", snap.AcceptanceRate.StringFixed(1)).
		Set("estimated_income", humanize.Comma(income)).
		Set("timestamp", snap.Timestamp.Format("2006-01-02 15:04:05")).
		Set("next_update", snap.FetchedAt.Add(a.Config.Scheduler.Interval).Format("2006-01-02 15:04:05"))
}

func (a *App) sampleFields() *template.Fields {
	now := time.Now()
	return template.NewFields().
		Set("score", 750).
		Set("completed_missions", 23).
		Set("active_riders", 31).
		Set("estimated_income", humanize.Comma(90000)).
		Set("score_change", "+25").
		Set("mission_change", "+3").
		Set("riders_change", "+2").
		Set("income_change", "+15,000").
		Set("peak_performance", 92).
		Set("avg_response_time", 3.5).
		Set("goal_achievement", 87).
		Set("timestamp", now.Format("2006-01-02 15:04:05")).
		Set("next_update", now.Add(a.Config.Scheduler.Interval).Format("2006-01-02 15:04:05"))
}
