package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

// TelemetryService records sensor readings and connectivity reported by
// device agents
type TelemetryService struct {
	store  repositories.DeviceStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTelemetryService creates a new telemetry service
func NewTelemetryService(store repositories.DeviceStore, logger *zap.Logger) *TelemetryService {
	return &TelemetryService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Report replaces the device's sensor data with reading and marks it online.
// Values for sensors the device was not registered with are dropped.
func (s *TelemetryService) Report(ctx context.Context, id string, reading entities.SensorReading) error {
	device, err := s.store.GetByID(ctx, id)
	if err != nil {
		return &entities.UpdateError{ID: id, Err: err}
	}

	data := reading.FilterFor(device, s.now())
	online := true
	if err := s.store.Update(ctx, id, entities.DeviceUpdate{SensorData: &data, IsOnline: &online}); err != nil {
		return &entities.UpdateError{ID: id, Err: err}
	}

	s.logger.Debug("Sensor data recorded",
		zap.String("device_id", id),
		zap.Int("values", len(data.Keys())))
	return nil
}

// SetOnline records a connectivity transition
func (s *TelemetryService) SetOnline(ctx context.Context, id string, online bool) error {
	if err := s.store.Update(ctx, id, entities.DeviceUpdate{IsOnline: &online}); err != nil {
		return &entities.UpdateError{ID: id, Err: err}
	}

	s.logger.Info("Device connectivity changed",
		zap.String("device_id", id),
		zap.Bool("online", online))
	return nil
}

// MarkOffline records that the device's agent went away
func (s *TelemetryService) MarkOffline(ctx context.Context, id string) error {
	return s.SetOnline(ctx, id, false)
}
