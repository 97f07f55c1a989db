package settings

import (
	"context"
	"encoding/json"
	"fmt"
)

// KeyValue is the slice of a storage backend the KVStore needs: one JSON
// value per fixed key.
type KeyValue interface {
	LoadSetting(ctx context.Context, key string) ([]byte, bool, error)
	SaveSetting(ctx context.Context, key string, value []byte) error
}

// KVStore persists settings under StorageKey in a key-value backend.
type KVStore struct {
	kv  KeyValue
	key string
}

// NewKVStore wires a key-value backend into a settings store.
func NewKVStore(kv KeyValue) *KVStore {
	return &KVStore{kv: kv, key: StorageKey}
}

// Load fetches and decodes the stored slot.
func (ks *KVStore) Load(ctx context.Context) (Settings, bool, error) {
	data, found, err := ks.kv.LoadSetting(ctx, ks.key)
	if err != nil {
		return Settings{}, false, fmt.Errorf("load settings slot: %w", err)
	}
	if !found {
		return Settings{}, false, nil
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, false, fmt.Errorf("decode settings slot: %w", err)
	}
	return s, true, nil
}

// Save replaces the stored slot wholesale.
func (ks *KVStore) Save(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := ks.kv.SaveSetting(ctx, ks.key, data); err != nil {
		return fmt.Errorf("save settings slot: %w", err)
	}
	return nil
}

var _ Store = (*KVStore)(nil)
