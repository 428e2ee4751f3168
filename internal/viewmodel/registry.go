package viewmodel

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

// RecentLimit is how many devices the dashboard lists as recently added
const RecentLimit = 5

// ErrAlreadyActive is returned when Activate is called on a registry that
// already holds a subscription
var ErrAlreadyActive = errors.New("registry is already active")

// ErrReleased is returned by Activate when Release ran before the
// subscription was established
var ErrReleased = errors.New("registry released during activation")

// State is a point-in-time copy of everything the registry exposes
type State struct {
	Devices []entities.Device `json:"devices"`
	Stats   Stats             `json:"stats"`
	Trend   Trend             `json:"trend"`
	Loaded  bool              `json:"loaded"`
	Error   string            `json:"error,omitempty"`
}

// Registry is the live device list behind one dashboard view. It holds a
// single store subscription between Activate and Release and keeps a local
// copy of the latest snapshot together with its derived stats and trend.
type Registry struct {
	store    repositories.DeviceStore
	logger   *zap.Logger
	onChange func(State)

	mu      sync.RWMutex
	devices []entities.Device
	stats   Stats
	trend   Trend
	loaded  bool
	lastErr error

	sub    repositories.Subscription
	active bool
	// generation ties handlers to the activation that created them
	generation uint64
}

// NewRegistry creates an inactive registry over store
func NewRegistry(store repositories.DeviceStore, logger *zap.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		trend:  SyntheticTrend(Stats{}),
	}
}

// WithOnChange sets a listener called after every snapshot or subscription
// error, on the delivering goroutine. It must be set before Activate and must
// not call Release.
func (r *Registry) WithOnChange(fn func(State)) *Registry {
	r.onChange = fn
	return r
}

// Activate opens the live subscription. The first snapshot may be delivered
// before Activate returns.
func (r *Registry) Activate(ctx context.Context) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	r.active = true
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	sub, err := r.store.Subscribe(ctx,
		func(devices []entities.Device) { r.handleSnapshot(gen, devices) },
		func(err error) { r.handleError(gen, err) },
	)
	if err != nil {
		serr := &entities.SubscriptionError{Err: err}
		r.logger.Error("Failed to subscribe to devices", zap.Error(err))

		r.mu.Lock()
		if gen == r.generation {
			r.active = false
			r.lastErr = serr
		}
		r.mu.Unlock()
		return serr
	}

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		sub.Cancel()
		return ErrReleased
	}
	r.sub = sub
	r.mu.Unlock()

	r.logger.Debug("Device registry activated")
	return nil
}

// Release cancels the subscription. When it returns no handler is running
// and none will run again. Calling it more than once is safe.
func (r *Registry) Release() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	wasActive := r.active
	r.active = false
	r.generation++
	r.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	if wasActive {
		r.logger.Debug("Device registry released")
	}
}

func (r *Registry) handleSnapshot(gen uint64, devices []entities.Device) {
	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		return
	}
	r.devices = devices
	r.stats = ComputeStats(devices)
	r.trend = SyntheticTrend(r.stats)
	r.loaded = true
	r.lastErr = nil
	state := r.stateLocked()
	r.mu.Unlock()

	r.notify(state)
}

func (r *Registry) handleError(gen uint64, err error) {
	serr := &entities.SubscriptionError{Err: err}
	r.logger.Error("Device subscription error", zap.Error(err))

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		return
	}
	r.lastErr = serr
	state := r.stateLocked()
	r.mu.Unlock()

	r.notify(state)
}

func (r *Registry) notify(state State) {
	if r.onChange != nil {
		r.onChange(state)
	}
}

// Devices returns a copy of the current list, newest first
func (r *Registry) Devices() []entities.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneDevices(r.devices)
}

// RecentDevices returns at most k of the newest devices
func (r *Registry) RecentDevices(k int) []entities.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k < 0 {
		k = 0
	}
	if k > len(r.devices) {
		k = len(r.devices)
	}
	return cloneDevices(r.devices[:k])
}

// Stats returns the aggregates of the current list
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Trend returns the synthetic weekly series for the current list
func (r *Registry) Trend() Trend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trend.clone()
}

// Loaded reports whether at least one snapshot has arrived
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// LastError returns the most recent subscription failure, nil once a
// snapshot has arrived after it
func (r *Registry) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Active reports whether the registry holds a subscription
func (r *Registry) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// State returns a copy of everything the registry exposes
func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stateLocked()
}

func (r *Registry) stateLocked() State {
	state := State{
		Devices: cloneDevices(r.devices),
		Stats:   r.stats,
		Trend:   r.trend.clone(),
		Loaded:  r.loaded,
	}
	if r.lastErr != nil {
		state.Error = r.lastErr.Error()
	}
	return state
}

func cloneDevices(devices []entities.Device) []entities.Device {
	out := make([]entities.Device, len(devices))
	for i := range devices {
		out[i] = devices[i].Clone()
	}
	return out
}
