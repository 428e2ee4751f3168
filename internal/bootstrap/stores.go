package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/housei/dashboard/adapters"
	"github.com/housei/dashboard/adapters/mongo"
	"github.com/housei/dashboard/config"
	"github.com/housei/dashboard/domain/repositories"
)

// Stores are the opened persistence backends
type Stores struct {
	Devices repositories.DeviceStore
	Admins  repositories.AdminRepository

	client *mongo.Client
}

// OpenStores connects the backends selected by cfg.Store.Mode
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if cfg.Store.Mode == config.StoreMemory {
		logger.Warn("Using in-memory store; data is lost on exit")
		return &Stores{
			Devices: adapters.NewMemoryDeviceStore(),
			Admins:  adapters.NewMemoryAdminRepository(),
		}, nil
	}

	client, err := mongo.NewClient(ctx, cfg.Store.MongoURI, cfg.Store.Database, logger)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Devices: mongo.NewDeviceStore(client.Database, logger),
		Admins:  mongo.NewAdminRepository(client.Database),
		client:  client,
	}, nil
}

// Close disconnects from the database, if any
func (s *Stores) Close() {
	if s.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Close(ctx)
}
