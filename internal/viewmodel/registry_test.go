package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/housei/dashboard/adapters"
	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

func watts(v float64) *float64 { return &v }

// tickingClock returns a clock that advances one minute per call
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

// erroringStore lets a test push subscription errors and snapshots by hand
type erroringStore struct {
	repositories.DeviceStore
	subscribeErr error
	onSnapshot   repositories.SnapshotHandler
	onError      repositories.ErrorHandler
	cancels      int
}

func (s *erroringStore) Subscribe(ctx context.Context, onSnapshot repositories.SnapshotHandler, onError repositories.ErrorHandler) (repositories.Subscription, error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.onSnapshot = onSnapshot
	s.onError = onError
	return cancelFunc(func() { s.cancels++ }), nil
}

type cancelFunc func()

func (f cancelFunc) Cancel() { f() }

func TestRegistry_ThreeDeviceScenario(t *testing.T) {
	ctx := context.Background()
	store := adapters.NewMemoryDeviceStore().WithClock(tickingClock())

	for _, d := range []entities.Device{
		{Name: "Lamp", Status: entities.DeviceStatusOn, PowerUsage: watts(10), IsOnline: true},
		{Name: "Heater", Status: entities.DeviceStatusOn, PowerUsage: watts(20), IsOnline: true},
		{Name: "Camera", Status: entities.DeviceStatusOff, PowerUsage: watts(99), IsOnline: false},
	} {
		device := d
		_, err := store.Create(ctx, &device)
		require.NoError(t, err)
	}

	registry := NewRegistry(store, zap.NewNop())
	require.NoError(t, registry.Activate(ctx))
	defer registry.Release()

	require.True(t, registry.Loaded())
	stats := registry.Stats()
	assert.Equal(t, 3, stats.DeviceCount)
	assert.Equal(t, 2, stats.ActiveCount)
	assert.Equal(t, 30.0, stats.TotalPower)
	assert.Equal(t, 2, stats.OnlineCount)
	assert.Equal(t, 67, stats.OnlinePercentage)

	devices := registry.Devices()
	require.Len(t, devices, 3)
	assert.Equal(t, "Camera", devices[0].Name, "newest first")
	assert.Equal(t, "Lamp", devices[2].Name)
}

func TestRegistry_FollowsWrites(t *testing.T) {
	ctx := context.Background()
	store := adapters.NewMemoryDeviceStore().WithClock(tickingClock())

	var states []State
	registry := NewRegistry(store, zap.NewNop()).WithOnChange(func(s State) {
		states = append(states, s)
	})
	require.NoError(t, registry.Activate(ctx))
	defer registry.Release()

	require.Len(t, states, 1)
	assert.True(t, states[0].Loaded)
	assert.Empty(t, states[0].Devices)
	assert.Equal(t, 0, states[0].Stats.OnlinePercentage)

	id, err := store.Create(ctx, &entities.Device{Name: "Lamp", Status: entities.DeviceStatusOff, PowerUsage: watts(15)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, registry.Stats().TotalPower)

	on := entities.DeviceStatusOn
	require.NoError(t, store.Update(ctx, id, entities.DeviceUpdate{Status: &on}))
	assert.Equal(t, 15.0, registry.Stats().TotalPower)
	assert.Equal(t, 1, registry.Stats().ActiveCount)

	require.NoError(t, store.Delete(ctx, id))
	assert.Empty(t, registry.Devices())
	assert.Len(t, states, 4)
}

func TestRegistry_ActivateTwice(t *testing.T) {
	store := adapters.NewMemoryDeviceStore()
	registry := NewRegistry(store, zap.NewNop())

	require.NoError(t, registry.Activate(context.Background()))
	assert.ErrorIs(t, registry.Activate(context.Background()), ErrAlreadyActive)
	assert.Equal(t, 1, store.SubscriberCount())

	registry.Release()
	registry.Release()
	assert.Equal(t, 0, store.SubscriberCount())
	assert.False(t, registry.Active())
}

func TestRegistry_NoUpdatesAfterRelease(t *testing.T) {
	ctx := context.Background()
	store := adapters.NewMemoryDeviceStore()

	calls := 0
	registry := NewRegistry(store, zap.NewNop()).WithOnChange(func(State) { calls++ })
	require.NoError(t, registry.Activate(ctx))
	registry.Release()

	_, err := store.Create(ctx, &entities.Device{Name: "Lamp"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Empty(t, registry.Devices())
}

func TestRegistry_SubscriptionErrorKeepsList(t *testing.T) {
	store := &erroringStore{}
	registry := NewRegistry(store, zap.NewNop())
	require.NoError(t, registry.Activate(context.Background()))

	store.onSnapshot([]entities.Device{{ID: "a", Name: "Lamp", IsOnline: true}})
	store.onError(errors.New("change stream closed"))

	var serr *entities.SubscriptionError
	require.ErrorAs(t, registry.LastError(), &serr)
	assert.Len(t, registry.Devices(), 1, "last good list stays in place")
	assert.NotEmpty(t, registry.State().Error)

	// A later snapshot clears the error
	store.onSnapshot(nil)
	assert.NoError(t, registry.LastError())

	registry.Release()
	assert.Equal(t, 1, store.cancels)
}

func TestRegistry_SubscribeFailure(t *testing.T) {
	store := &erroringStore{subscribeErr: errors.New("no replica set")}
	registry := NewRegistry(store, zap.NewNop())

	err := registry.Activate(context.Background())
	var serr *entities.SubscriptionError
	require.ErrorAs(t, err, &serr)
	assert.False(t, registry.Active())
	assert.False(t, registry.Loaded())

	// Release without a subscription is harmless
	registry.Release()
}

func TestRegistry_RecentDevicesAndCopies(t *testing.T) {
	ctx := context.Background()
	store := adapters.NewMemoryDeviceStore().WithClock(tickingClock())
	for i := 0; i < 7; i++ {
		_, err := store.Create(ctx, &entities.Device{Name: string(rune('A' + i))})
		require.NoError(t, err)
	}

	registry := NewRegistry(store, zap.NewNop())
	require.NoError(t, registry.Activate(ctx))
	defer registry.Release()

	recent := registry.RecentDevices(RecentLimit)
	require.Len(t, recent, 5)
	assert.Equal(t, "G", recent[0].Name)
	assert.Equal(t, "C", recent[4].Name)
	assert.Len(t, registry.RecentDevices(50), 7)
	assert.Empty(t, registry.RecentDevices(-1))

	recent[0].Name = "mutated"
	assert.Equal(t, "G", registry.Devices()[0].Name)

	trend := registry.Trend()
	trend.Total[0] = 1000
	assert.Equal(t, 2, registry.Trend().Total[0])
}
