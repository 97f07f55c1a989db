package settings

import (
	"context"
	"fmt"

	"grider-status-alerts/internal/template"
)

// StorageKey is the fixed slot name the settings are persisted under. The
// value is kept for compatibility with configs written by the web dashboard.
const StorageKey = "grider-message-settings"

// Settings is the user-editable notification configuration. The JSON field
// names mirror the dashboard's persisted shape.
type Settings struct {
	Template       string `json:"template"`
	SendOnChange   bool   `json:"sendOnChange"`
	SendOnSchedule bool   `json:"sendOnSchedule"`
	SendOnAlert    bool   `json:"sendOnAlert"`
	CustomMessage  string `json:"customMessage,omitempty"`
}

// Default returns the settings applied when nothing has been persisted yet.
func Default() Settings {
	return Settings{
		Template:       template.NameStandard,
		SendOnChange:   true,
		SendOnSchedule: true,
		SendOnAlert:    false,
	}
}

// Validate checks the template identifier and, for custom templates, that
// the custom body parses.
func (s Settings) Validate() error {
	switch s.Template {
	case template.NameStandard, template.NameDetailed, template.NameSimple:
		return nil
	case template.NameCustom:
		if _, err := template.ParseCustom(s.CustomMessage); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown template %q", s.Template)
	}
}

// ResolveTemplate returns the template the settings select. The custom body
// is only consulted when the identifier is "custom".
func (s Settings) ResolveTemplate() (template.Template, error) {
	if s.Template == template.NameCustom {
		return template.ParseCustom(s.CustomMessage)
	}
	tpl, ok := template.Lookup(s.Template)
	if !ok {
		return template.Template{}, fmt.Errorf("unknown template %q", s.Template)
	}
	return tpl, nil
}

// Store persists a single settings value. Load reports found=false when no
// value has been written yet; Save replaces the value wholesale.
type Store interface {
	Load(ctx context.Context) (Settings, bool, error)
	Save(ctx context.Context, s Settings) error
}
