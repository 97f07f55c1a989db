package settings

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager owns the single in-memory settings value. All mutation flows
// through Update/Save; the refresh cycle only reads. Writes follow a
// last-writer-wins policy and always replace the stored value wholesale.
type Manager struct {
	store  Store
	logger zerolog.Logger

	autosaveDelay time.Duration
	saveTimeout   time.Duration

	mu       sync.Mutex
	current  Settings
	gen      uint64
	savedGen uint64
	timer    *time.Timer
	saveErr  func(error)
}

// NewManager constructs a Manager around a store. A non-positive
// autosaveDelay disables the debounced autosave path.
func NewManager(store Store, autosaveDelay time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		store:         store,
		logger:        logger.With().Str("component", "settings").Logger(),
		autosaveDelay: autosaveDelay,
		saveTimeout:   5 * time.Second,
		current:       Default(),
	}
}

// SetSaveErrorSink registers a callback invoked when a background autosave
// fails. Explicit saves report their error to the caller instead.
func (m *Manager) SetSaveErrorSink(sink func(error)) {
	m.mu.Lock()
	m.saveErr = sink
	m.mu.Unlock()
}

// Load reads the persisted settings, falling back to defaults when the slot
// is empty, unreadable, or fails validation. Load never fails: a broken
// slot only costs the user their customisations.
func (m *Manager) Load(ctx context.Context) Settings {
	loaded, found, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("settings load failed; using defaults")
		return m.adopt(Default())
	}
	if !found {
		m.logger.Debug().Msg("no persisted settings; using defaults")
		return m.adopt(Default())
	}
	if err := loaded.Validate(); err != nil {
		m.logger.Warn().Err(err).Msg("persisted settings invalid; using defaults")
		return m.adopt(Default())
	}
	return m.adopt(loaded)
}

func (m *Manager) adopt(s Settings) Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
	m.savedGen = m.gen
	return s
}

// Current returns a copy of the in-memory settings.
func (m *Manager) Current() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Update applies an in-memory edit and arms the debounced autosave. Repeated
// edits within the debounce window collapse into one write.
func (m *Manager) Update(apply func(*Settings)) Settings {
	m.mu.Lock()
	defer m.mu.Unlock()

	apply(&m.current)
	m.gen++

	if m.autosaveDelay > 0 {
		if m.timer != nil {
			m.timer.Stop()
		}
		m.timer = time.AfterFunc(m.autosaveDelay, m.autosave)
	}
	return m.current
}

// autosave runs on the debounce timer. A generation check makes it a no-op
// when an explicit save already persisted the pending edit.
func (m *Manager) autosave() {
	m.mu.Lock()
	if m.savedGen == m.gen {
		m.mu.Unlock()
		return
	}
	snapshot := m.current
	gen := m.gen
	sink := m.saveErr
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()

	if err := m.store.Save(ctx, snapshot); err != nil {
		m.logger.Error().Err(err).Msg("autosave failed; in-memory settings kept")
		if sink != nil {
			sink(err)
		}
		return
	}

	m.mu.Lock()
	if gen > m.savedGen {
		m.savedGen = gen
	}
	m.mu.Unlock()
	m.logger.Debug().Msg("settings autosaved")
}

// Save persists the current settings immediately, cancelling any pending
// autosave. The underlying write completes before Save returns. A failed
// save keeps the in-memory value for this session.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	snapshot := m.current
	gen := m.gen
	m.mu.Unlock()

	if err := m.store.Save(ctx, snapshot); err != nil {
		return err
	}

	m.mu.Lock()
	if gen > m.savedGen {
		m.savedGen = gen
	}
	m.mu.Unlock()
	return nil
}

// SaveOnTeardown persists whatever the in-memory settings currently are.
// It is idempotent with an immediately preceding Save: a clean generation
// skips the write entirely.
func (m *Manager) SaveOnTeardown(ctx context.Context) error {
	m.mu.Lock()
	clean := m.savedGen == m.gen
	m.mu.Unlock()

	if clean {
		return nil
	}
	return m.Save(ctx)
}
