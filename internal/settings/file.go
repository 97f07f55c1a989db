package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileEnvelope is the on-disk shape, matching the config file the web
// dashboard exported for its automation backend.
type fileEnvelope struct {
	MessageSettings Settings  `json:"message_settings"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FileStore persists settings as a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore constructs a file-backed settings store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the settings file.
func (fs *FileStore) Load(ctx context.Context) (Settings, bool, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("read settings file: %w", err)
	}

	var envelope fileEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Settings{}, false, fmt.Errorf("decode settings file: %w", err)
	}
	return envelope.MessageSettings, true, nil
}

// Save writes the settings file synchronously; when Save returns the bytes
// are handed to the OS, so an immediately following teardown save observes
// this write.
func (fs *FileStore) Save(ctx context.Context, s Settings) error {
	envelope := fileEnvelope{MessageSettings: s, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(fs.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}

	if err := os.WriteFile(fs.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
