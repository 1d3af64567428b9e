package localeprefs

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBackendDown = errors.New("backend down")

// MockPersistentStore implements PersistentStore over a map. failWith makes
// every call return that error; panicWith makes every call panic.
type MockPersistentStore struct {
	mu        sync.Mutex
	data      map[string][]byte
	failWith  error
	panicWith any
	sets      int
}

func NewMockPersistentStore() *MockPersistentStore {
	return &MockPersistentStore{data: make(map[string][]byte)}
}

func (m *MockPersistentStore) check() error {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.failWith
}

func (m *MockPersistentStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	v, exists := m.data[key]
	if !exists {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MockPersistentStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.sets++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockPersistentStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.data, key)
	return nil
}

func (m *MockPersistentStore) Usage(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	var n int64
	for k, v := range m.data {
		n += int64(len(k) + len(v))
	}
	return n, nil
}

func (m *MockPersistentStore) Available(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check() == nil
}

func (m *MockPersistentStore) raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, exists := m.data[key]
	return v, exists
}

func (m *MockPersistentStore) put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// MockHeaderStore implements HeaderStore over a map.
type MockHeaderStore struct {
	mu        sync.Mutex
	values    map[string]string
	failWith  error
	panicWith any
	sets      int
}

func NewMockHeaderStore() *MockHeaderStore {
	return &MockHeaderStore{values: make(map[string]string)}
}

func (m *MockHeaderStore) check() error {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.failWith
}

func (m *MockHeaderStore) Get(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return "", err
	}
	v, exists := m.values[name]
	if !exists {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MockHeaderStore) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.sets++
	m.values[name] = value
	return nil
}

func (m *MockHeaderStore) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.values, name)
	return nil
}

func (m *MockHeaderStore) Usage(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	var n int64
	for k, v := range m.values {
		n += int64(len(k) + len(v) + 1)
	}
	return n, nil
}

func (m *MockHeaderStore) Available(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check() == nil
}

func (m *MockHeaderStore) value(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, exists := m.values[name]
	return v, exists
}

// MockStorage implements the multi-client Storage interface.
type MockStorage struct {
	mu      sync.RWMutex
	data    map[string]map[string][]byte
	pingErr error
	closed  bool
}

func NewMockStorage() *MockStorage {
	return &MockStorage{data: make(map[string]map[string][]byte)}
}

func (m *MockStorage) Get(_ context.Context, clientID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStorageUnavailable
	}
	if v, exists := m.data[clientID][key]; exists {
		return v, nil
	}
	return nil, ErrNotFound
}

func (m *MockStorage) Set(_ context.Context, clientID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStorageUnavailable
	}
	if _, exists := m.data[clientID]; !exists {
		m.data[clientID] = make(map[string][]byte)
	}
	m.data[clientID][key] = value
	return nil
}

func (m *MockStorage) Delete(_ context.Context, clientID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[clientID][key]; !exists {
		return ErrNotFound
	}
	delete(m.data[clientID], key)
	return nil
}

func (m *MockStorage) Usage(_ context.Context, clientID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for k, v := range m.data[clientID] {
		n += int64(len(k) + len(v))
	}
	return n, nil
}

func (m *MockStorage) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MockLogger implements the Logger interface for testing.
type MockLogger struct {
	mu       sync.Mutex
	messages []string
	level    LogLevel
}

func (m *MockLogger) record(prefix, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, prefix+msg)
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("DEBUG: ", msg) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("INFO: ", msg) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("WARN: ", msg) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("ERROR: ", msg) }

func (m *MockLogger) SetLevel(level LogLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

func (m *MockLogger) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// fakeClock is a settable clock shared by the Manager and its cache.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv bundles a Manager with its doubles.
type testEnv struct {
	persistent *MockPersistentStore
	header     *MockHeaderStore
	clock      *fakeClock
	logger     *MockLogger
	mgr        *Manager
}

func newTestEnv(opts ...Option) *testEnv {
	env := &testEnv{
		persistent: NewMockPersistentStore(),
		header:     NewMockHeaderStore(),
		clock:      newFakeClock(),
		logger:     &MockLogger{},
	}
	base := []Option{
		WithPersistentStore(env.persistent),
		WithHeaderStore(env.header),
		WithLogger(env.logger),
		WithClock(env.clock.Now),
		WithClientID("client-1"),
	}
	env.mgr = New(append(base, opts...)...)
	return env
}
