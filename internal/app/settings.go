package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"grider-status-alerts/internal/settings"
)

// SettingsShow prints the persisted notification settings.
func (a *App) SettingsShow(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	current := a.newSettingsManager(store).Load(ctx)
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

// SettingsSet applies the given overrides and saves explicitly. The save is
// wholesale: the full settings object replaces the stored one.
func (a *App) SettingsSet(ctx context.Context, opts SettingsSetOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	mgr := a.newSettingsManager(store)
	mgr.Load(ctx)

	updated := mgr.Update(func(s *settings.Settings) {
		if opts.Template != nil {
			s.Template = *opts.Template
		}
		if opts.SendOnChange != nil {
			s.SendOnChange = *opts.SendOnChange
		}
		if opts.SendOnSchedule != nil {
			s.SendOnSchedule = *opts.SendOnSchedule
		}
		if opts.SendOnAlert != nil {
			s.SendOnAlert = *opts.SendOnAlert
		}
		if opts.CustomMessage != nil {
			s.CustomMessage = *opts.CustomMessage
		}
	})

	if err := updated.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := mgr.Save(ctx); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	a.Logger.Info().Str("template", updated.Template).Msg("메시지 설정이 저장되었습니다")
	return nil
}
