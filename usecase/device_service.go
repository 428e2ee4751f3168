package usecase

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

// DeviceService issues device commands against the store. It never touches
// local device state; results become visible through live subscriptions.
type DeviceService struct {
	store         repositories.DeviceStore
	logger        *zap.Logger
	estimatePower func() float64
	now           func() time.Time
}

// NewDeviceService creates a new device command service
func NewDeviceService(store repositories.DeviceStore, logger *zap.Logger) *DeviceService {
	return &DeviceService{
		store:         store,
		logger:        logger,
		estimatePower: placeholderPowerUsage,
		now:           time.Now,
	}
}

// WithPowerEstimator replaces the placeholder power estimate
func (s *DeviceService) WithPowerEstimator(estimate func() float64) *DeviceService {
	s.estimatePower = estimate
	return s
}

// WithClock replaces the time source used to stamp initial sensor data
func (s *DeviceService) WithClock(now func() time.Time) *DeviceService {
	s.now = now
	return s
}

// placeholderPowerUsage stands in for a real measurement: a whole number of
// watts in [5, 54]
func placeholderPowerUsage() float64 {
	return float64(rand.IntN(50) + 5)
}

// Create validates the draft and adds a new device, returning its ID.
// Validation failures are returned before the store is contacted.
func (s *DeviceService) Create(ctx context.Context, draft entities.DeviceDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}

	power := s.estimatePower()
	sensorData := entities.InitialSensorData(draft.Sensors, s.now())
	device := &entities.Device{
		Name:          draft.Name,
		Type:          draft.Type,
		Status:        entities.DeviceStatusOff,
		IsOnline:      true,
		PowerUsage:    &power,
		Sensors:       draft.Sensors,
		OwnerEmail:    draft.OwnerEmail,
		OwnerPassword: draft.OwnerPassword,
		SensorData:    &sensorData,
	}

	id, err := s.store.Create(ctx, device)
	if err != nil {
		s.logger.Error("Error adding device",
			zap.String("name", draft.Name),
			zap.Error(err))
		return "", &entities.CreationError{Err: err}
	}

	s.logger.Info("Device added",
		zap.String("device_id", id),
		zap.String("type", string(draft.Type)),
		zap.Int("sensors", len(draft.Sensors)))
	return id, nil
}

// ToggleStatus writes the opposite of current as the device's new status
// and returns it. The new value is derived from the caller's last known
// status, not read from the store, so two sessions toggling the same device
// concurrently race and the last write wins.
func (s *DeviceService) ToggleStatus(ctx context.Context, id string, current entities.DeviceStatus) (entities.DeviceStatus, error) {
	if id == "" {
		return "", &entities.ValidationError{Field: "id", Message: "device id is required"}
	}
	if !current.Valid() {
		return "", &entities.ValidationError{Field: "current_status", Message: "current status must be on or off"}
	}

	next := current.Opposite()
	if err := s.store.Update(ctx, id, entities.DeviceUpdate{Status: &next}); err != nil {
		s.logger.Error("Error toggling device status",
			zap.String("device_id", id),
			zap.Error(err))
		return "", &entities.UpdateError{ID: id, Err: err}
	}

	s.logger.Info("Device status toggled",
		zap.String("device_id", id),
		zap.String("status", string(next)))
	return next, nil
}

// Delete removes a device. Callers are expected to have confirmed the
// deletion with the user; there is no undo.
func (s *DeviceService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &entities.ValidationError{Field: "id", Message: "device id is required"}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("Error deleting device",
			zap.String("device_id", id),
			zap.Error(err))
		return &entities.DeletionError{ID: id, Err: err}
	}

	s.logger.Info("Device deleted", zap.String("device_id", id))
	return nil
}
