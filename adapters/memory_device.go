package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

// MemoryDeviceStore is an in-memory implementation of DeviceStore with live
// snapshots. Writes are delivered to subscribers synchronously and in order,
// so handlers must not write back to the store.
type MemoryDeviceStore struct {
	mu      sync.RWMutex
	devices map[string]*entities.Device // id -> device mapping
	order   map[string]uint64           // id -> insertion sequence, breaks created_at ties
	seq     uint64

	// dispatch serializes mutation+delivery so every subscriber sees
	// snapshots in write order
	dispatch    sync.Mutex
	subscribers map[uint64]*memorySubscription
	nextSubID   uint64

	now func() time.Time
}

// NewMemoryDeviceStore creates a new, empty in-memory device store
func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{
		devices:     make(map[string]*entities.Device),
		order:       make(map[string]uint64),
		subscribers: make(map[uint64]*memorySubscription),
		now:         time.Now,
	}
}

// WithClock replaces the store's time source; used by tests
func (m *MemoryDeviceStore) WithClock(now func() time.Time) *MemoryDeviceStore {
	m.now = now
	return m
}

// Create implements DeviceStore interface
func (m *MemoryDeviceStore) Create(ctx context.Context, device *entities.Device) (string, error) {
	if device == nil {
		return "", errors.New("device cannot be nil")
	}

	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	// Generate ID and creation time; both are store-assigned
	device.ID = uuid.New().String()
	device.CreatedAt = m.now()

	deviceCopy := device.Clone()
	m.devices[device.ID] = &deviceCopy
	m.seq++
	m.order[device.ID] = m.seq
	m.mu.Unlock()

	m.publish()
	return device.ID, nil
}

// GetByID implements DeviceStore interface
func (m *MemoryDeviceStore) GetByID(ctx context.Context, id string) (*entities.Device, error) {
	if id == "" {
		return nil, errors.New("device ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	device, exists := m.devices[id]
	if !exists {
		return nil, entities.ErrDeviceNotFound
	}

	// Return a copy to prevent external modifications
	deviceCopy := device.Clone()
	return &deviceCopy, nil
}

// Update implements DeviceStore interface
func (m *MemoryDeviceStore) Update(ctx context.Context, id string, update entities.DeviceUpdate) error {
	if id == "" {
		return errors.New("device ID cannot be empty")
	}

	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	device, exists := m.devices[id]
	if !exists {
		m.mu.Unlock()
		return entities.ErrDeviceNotFound
	}
	update.Apply(device)
	m.mu.Unlock()

	m.publish()
	return nil
}

// Delete implements DeviceStore interface. Deleting a missing device is not
// an error.
func (m *MemoryDeviceStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("device ID cannot be empty")
	}

	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	if _, exists := m.devices[id]; !exists {
		m.mu.Unlock()
		return nil
	}
	delete(m.devices, id)
	delete(m.order, id)
	m.mu.Unlock()

	m.publish()
	return nil
}

// List implements DeviceStore interface
func (m *MemoryDeviceStore) List(ctx context.Context) ([]entities.Device, error) {
	return m.snapshot(), nil
}

// Subscribe implements DeviceStore interface. The first snapshot is
// delivered before Subscribe returns. The subscription is cancelled when
// ctx is done or Cancel is called, whichever comes first.
func (m *MemoryDeviceStore) Subscribe(ctx context.Context, onSnapshot repositories.SnapshotHandler, onError repositories.ErrorHandler) (repositories.Subscription, error) {
	if onSnapshot == nil {
		return nil, errors.New("snapshot handler cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.dispatch.Lock()
	m.nextSubID++
	sub := &memorySubscription{
		id:         m.nextSubID,
		store:      m,
		onSnapshot: onSnapshot,
		done:       make(chan struct{}),
	}
	m.subscribers[sub.id] = sub
	sub.onSnapshot(m.snapshot())
	m.dispatch.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Len returns the number of stored devices
func (m *MemoryDeviceStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}

// SubscriberCount returns the number of live subscriptions
func (m *MemoryDeviceStore) SubscriberCount() int {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()
	return len(m.subscribers)
}

// publish delivers the current snapshot to every subscriber.
// Callers must hold m.dispatch.
func (m *MemoryDeviceStore) publish() {
	for _, sub := range m.subscribers {
		sub.onSnapshot(m.snapshot())
	}
}

// snapshot returns copies of all devices, newest first
func (m *MemoryDeviceStore) snapshot() []entities.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]entities.Device, 0, len(m.devices))
	for _, device := range m.devices {
		devices = append(devices, device.Clone())
	}
	sort.SliceStable(devices, func(i, j int) bool {
		if !devices[i].CreatedAt.Equal(devices[j].CreatedAt) {
			return devices[i].CreatedAt.After(devices[j].CreatedAt)
		}
		return m.order[devices[i].ID] > m.order[devices[j].ID]
	})
	return devices
}

type memorySubscription struct {
	id         uint64
	store      *MemoryDeviceStore
	onSnapshot repositories.SnapshotHandler
	once       sync.Once
	done       chan struct{}
}

// Cancel removes the subscription; no handler runs after it returns
func (s *memorySubscription) Cancel() {
	s.once.Do(func() {
		s.store.dispatch.Lock()
		delete(s.store.subscribers, s.id)
		s.store.dispatch.Unlock()
		close(s.done)
	})
}
