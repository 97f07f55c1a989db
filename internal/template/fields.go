package template

import (
	"errors"
	"fmt"
)

var errEmptyContent = errors.New("template content is empty")

// Fields is an insertion-ordered map of placeholder values.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields constructs an empty field map.
func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

// Set stores the string form of value under key. Re-setting an existing key
// overwrites the value but keeps its original position.
func (f *Fields) Set(key string, value any) *Fields {
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = stringify(value)
	return f
}

// Get returns the stored string form of key.
func (f *Fields) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Len reports the number of stored fields.
func (f *Fields) Len() int {
	return len(f.keys)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
