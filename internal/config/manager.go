package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/cyrup-ai/kodegen-tools-config/internal/event"
	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
	"github.com/cyrup-ai/kodegen-tools-config/internal/persist"
	"github.com/cyrup-ai/kodegen-tools-config/internal/storage"
	"github.com/cyrup-ai/kodegen-tools-config/internal/sysinfo"
	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// rateLogEvery controls how often a successful write logs the running rate.
const rateLogEvery = 10

// ErrClosed is returned by SetValue after Close.
var ErrClosed = errors.New("config manager closed")

// Manager owns the in-memory configuration and its persistence.
// All methods are safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	cfg    types.ServerConfig
	closed bool

	doc      *storage.Document
	registry *Registry
	bus      *event.Bus
	ownsBus  bool
	metrics  *persist.Metrics
	saver    *persist.Saver

	systemInfo func() types.SystemInfo
	now        func() time.Time
}

type options struct {
	path         string
	fs           afero.Fs
	debounce     time.Duration
	pollInterval time.Duration
	systemInfo   func() types.SystemInfo
	bus          *event.Bus
	registry     *Registry
	clock        func() time.Time
	metrics      *persist.Metrics
}

// Option configures a Manager.
type Option func(*options)

// WithPath sets the config file path. Defaults to DefaultPath().
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithFs sets the filesystem the config file lives on. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithDebounce sets the quiet period before a background save.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithPollInterval sets how often the saver checks its deadline.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithSystemInfo replaces the diagnostics collector.
func WithSystemInfo(fn func() types.SystemInfo) Option {
	return func(o *options) { o.systemInfo = fn }
}

// WithBus sets the event bus. Without it the Manager creates a private bus
// and closes it in Close.
func WithBus(b *event.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithRegistry replaces the key registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithClock sets the clock used for client timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithMetrics sets the write counters.
func WithMetrics(m *persist.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewManager returns a Manager holding defaults and starts its saver.
// Call Init to load the file and Close to flush on shutdown.
func NewManager(opts ...Option) *Manager {
	o := options{
		path:       DefaultPath(),
		systemInfo: sysinfo.Collect,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if o.metrics == nil {
		o.metrics = persist.NewMetrics()
	}

	m := &Manager{
		cfg:        types.DefaultServerConfig(),
		doc:        storage.NewDocument(o.fs, expandHome(o.path)),
		registry:   o.registry,
		bus:        o.bus,
		metrics:    o.metrics,
		systemInfo: o.systemInfo,
		now:        o.clock,
	}
	if m.bus == nil {
		m.bus = event.NewBus()
		m.ownsBus = true
	}
	m.saver = persist.New(m.writeSnapshot, persist.Options{
		Debounce:     o.debounce,
		PollInterval: o.pollInterval,
		Metrics:      o.metrics,
		OnError:      m.saveFailed,
	})
	return m
}

// Path returns the config file path.
func (m *Manager) Path() string {
	return m.doc.Path()
}

// Bus returns the bus the Manager publishes on.
func (m *Manager) Bus() *event.Bus {
	return m.bus
}

// Registry returns the key registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Init loads the config file, applies environment overrides and writes the
// result back once.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.doc.EnsureDir(); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg := load(ctx, m.doc)
	applyEnvOverrides(&cfg)

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	if err := m.writeSnapshot(ctx); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	logging.Info().Str("path", m.doc.Path()).Msg("config initialized")
	return nil
}

// Close stops the saver, flushing a pending save, and waits for it or ctx.
// Every SetValue that returned nil before Close is in the final write.
// Afterwards SetValue returns ErrClosed and SetClientInfo is ignored.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	err := m.saver.Close(ctx)
	if m.ownsBus && err == nil {
		_ = m.bus.Close()
	}
	return err
}

// Config returns a copy of the current settings with live diagnostics.
func (m *Manager) Config() types.ServerConfig {
	m.mu.RLock()
	cfg := m.cfg.Clone()
	m.mu.RUnlock()

	if m.systemInfo != nil {
		info := m.systemInfo()
		cfg.SystemInfo = &info
	}
	cfg.SaveErrorCount = m.metrics.Failures()
	return cfg
}

// Value returns the value stored under key. Unknown keys report false.
func (m *Manager) Value(key string) (types.ConfigValue, bool) {
	field, ok := m.registry.Lookup(key)
	if !ok {
		return types.ConfigValue{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return field.Read(&m.cfg), true
}

// SetValue validates and stores value under key, then schedules a save.
// On error nothing changes. After Close it returns ErrClosed.
func (m *Manager) SetValue(key string, value types.ConfigValue) error {
	field, ok := m.registry.Lookup(key)
	if !ok {
		return m.registry.UnknownKeyError(key, m.FuzzySearchThreshold())
	}

	apply, err := field.Validate(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	apply(&m.cfg)
	stored := field.Read(&m.cfg)
	// Requested under the lock so Close cannot stop the saver in between.
	m.saver.Request()
	m.mu.Unlock()

	logging.Debug().Str("key", key).Stringer("value", stored).Msg("config value updated")

	m.bus.Publish(event.Event{
		Type: event.ConfigUpdated,
		Data: event.ConfigUpdatedData{Key: key, Value: stored},
	})
	return nil
}

// SetClientInfo records a connecting client as current and in the history.
// It does nothing after Close.
func (m *Manager) SetClientInfo(client types.ClientInfo) {
	now := m.now().UTC()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	isNew := true
	for i := range m.cfg.ClientHistory {
		if m.cfg.ClientHistory[i].Matches(client) {
			m.cfg.ClientHistory[i].LastSeen = now
			isNew = false
			break
		}
	}
	if isNew {
		m.cfg.ClientHistory = append(m.cfg.ClientHistory, types.ClientRecord{
			ClientInfo:  client,
			ConnectedAt: now,
			LastSeen:    now,
		})
	}
	current := client
	m.cfg.CurrentClient = &current
	m.saver.Request()
	m.mu.Unlock()

	logging.Info().
		Str("name", client.Name).
		Str("version", client.Version).
		Bool("new", isNew).
		Msg("client connected")

	m.bus.Publish(event.Event{
		Type: event.ClientConnected,
		Data: event.ClientConnectedData{Client: client, New: isNew},
	})
}

// ClientInfo returns the most recently connected client, or nil.
func (m *Manager) ClientInfo() *types.ClientInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg.CurrentClient == nil {
		return nil
	}
	c := *m.cfg.CurrentClient
	return &c
}

// ClientHistory returns a copy of every recorded client.
func (m *Manager) ClientHistory() []types.ClientRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ClientRecord, len(m.cfg.ClientHistory))
	copy(out, m.cfg.ClientHistory)
	return out
}

// SaveErrorCount returns the number of failed background saves.
func (m *Manager) SaveErrorCount() uint64 {
	return m.metrics.Failures()
}

// Metrics returns the write counters.
func (m *Manager) Metrics() *persist.Metrics {
	return m.metrics
}

// BlockedCommands returns the command denylist.
func (m *Manager) BlockedCommands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneList(m.cfg.BlockedCommands)
}

// FileReadLineLimit returns the per-read line limit.
func (m *Manager) FileReadLineLimit() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.FileReadLineLimit
}

// FileWriteLineLimit returns the per-write line limit.
func (m *Manager) FileWriteLineLimit() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.FileWriteLineLimit
}

// FuzzySearchThreshold returns the similarity threshold as a fraction.
func (m *Manager) FuzzySearchThreshold() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.FuzzySearchThreshold
}

// HTTPConnectionTimeout returns the timeout for outbound HTTP connections.
func (m *Manager) HTTPConnectionTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Duration(m.cfg.HTTPConnectionTimeoutSecs) * time.Second
}

// PathValidationTimeout returns the time limit for a single path check.
func (m *Manager) PathValidationTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Duration(m.cfg.PathValidationTimeoutMs) * time.Millisecond
}

// writeSnapshot copies state under the read lock and writes it after release.
func (m *Manager) writeSnapshot(ctx context.Context) error {
	m.mu.RLock()
	snapshot := m.cfg.Clone()
	m.mu.RUnlock()

	snapshot.SystemInfo = nil
	snapshot.SaveErrorCount = 0

	if err := m.doc.Write(ctx, &snapshot); err != nil {
		return err
	}

	writes := m.metrics.RecordWrite()
	if (writes-1)%rateLogEvery == 0 {
		log := logging.Component("config")
		log.Info().
			Uint64("writes", writes).
			Float64("perMinute", m.metrics.WriteRate()).
			Msg("config writes")
	}

	m.bus.Publish(event.Event{
		Type: event.ConfigSaved,
		Data: event.ConfigSavedData{Path: m.doc.Path(), Writes: writes},
	})
	return nil
}

func (m *Manager) saveFailed(err error, failures uint64) {
	m.bus.Publish(event.Event{
		Type: event.ConfigSaveFailed,
		Data: event.ConfigSaveFailedData{Path: m.doc.Path(), Failures: failures, Error: err.Error()},
	})
}

func cloneList(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
