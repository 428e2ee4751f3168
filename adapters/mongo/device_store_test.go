package mongo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
)

// TestDeviceStore_Integration tests the MongoDB device store.
// This test requires a running MongoDB replica set (skipped if MONGODB_URI is not set)
func TestDeviceStore_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	logger := zap.NewNop()

	dbName := fmt.Sprintf("housei_test_%d", time.Now().UnixNano())
	client, err := NewClient(ctx, mongoURI, dbName, logger)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Close(ctx)
	defer client.Database.Drop(ctx)

	store := NewDeviceStore(client.Database, logger)

	t.Run("CreateAndGetDevice", func(t *testing.T) {
		power := 15.0
		device := &entities.Device{
			Name:       "Kitchen Hub",
			Type:       entities.DeviceTypeSensorHub,
			Status:     entities.DeviceStatusOff,
			IsOnline:   true,
			PowerUsage: &power,
			Sensors:    []entities.SensorKind{entities.SensorGas},
		}

		id, err := store.Create(ctx, device)
		if err != nil {
			t.Fatalf("Failed to create device: %v", err)
		}

		retrieved, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("Failed to get device: %v", err)
		}

		if retrieved.Name != "Kitchen Hub" {
			t.Errorf("Expected name Kitchen Hub, got %s", retrieved.Name)
		}
		if retrieved.Power() != 15 {
			t.Errorf("Expected power 15, got %v", retrieved.Power())
		}
		if !retrieved.CreatedAt.Equal(device.CreatedAt) {
			t.Errorf("Expected created_at %v, got %v", device.CreatedAt, retrieved.CreatedAt)
		}
	})

	t.Run("UpdateMissingDevice", func(t *testing.T) {
		on := entities.DeviceStatusOn
		err := store.Update(ctx, "000000000000000000000000", entities.DeviceUpdate{Status: &on})
		if err != entities.ErrDeviceNotFound {
			t.Errorf("Expected ErrDeviceNotFound, got %v", err)
		}
	})

	t.Run("SubscribeSeesWrites", func(t *testing.T) {
		var mu sync.Mutex
		var latest []entities.Device
		snapshots := make(chan struct{}, 16)

		sub, err := store.Subscribe(ctx, func(devices []entities.Device) {
			mu.Lock()
			latest = devices
			mu.Unlock()
			snapshots <- struct{}{}
		}, func(err error) {
			t.Logf("subscription error: %v", err)
		})
		if err != nil {
			t.Skipf("Change streams unavailable (standalone server?): %v", err)
		}
		defer sub.Cancel()

		waitSnapshot := func() {
			select {
			case <-snapshots:
			case <-time.After(5 * time.Second):
				t.Fatal("Snapshot not received within timeout")
			}
		}
		waitSnapshot()

		id, err := store.Create(ctx, &entities.Device{Name: "Porch Light", Type: entities.DeviceTypeLight, Status: entities.DeviceStatusOff})
		if err != nil {
			t.Fatalf("Failed to create device: %v", err)
		}
		waitSnapshot()

		mu.Lock()
		first := latest[0]
		mu.Unlock()
		if first.ID != id {
			t.Errorf("Expected newest device %s first, got %s", id, first.ID)
		}

		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("Failed to delete device: %v", err)
		}
		waitSnapshot()
	})
}

// TestAdminRepository_Integration tests admin credential lookups
func TestAdminRepository_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, mongoURI, fmt.Sprintf("housei_admin_test_%d", time.Now().UnixNano()), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Close(ctx)
	defer client.Database.Drop(ctx)

	repo := NewAdminRepository(client.Database)

	if err := repo.Create(ctx, &entities.AdminRecord{Email: "root@housei.io", Password: "Housei2025!"}); err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}

	admin, err := repo.FindByCredentials(ctx, "root@housei.io", "Housei2025!")
	if err != nil {
		t.Fatalf("Failed to find admin: %v", err)
	}
	if admin.Email != "root@housei.io" {
		t.Errorf("Expected email root@housei.io, got %s", admin.Email)
	}

	if _, err := repo.FindByCredentials(ctx, "root@housei.io", "wrong"); err != entities.ErrAdminNotFound {
		t.Errorf("Expected ErrAdminNotFound, got %v", err)
	}
}

func TestDeviceDocument_ToEntity(t *testing.T) {
	doc := deviceDocument{Device: entities.Device{Name: "Garage Lock"}}
	doc.ObjectID[11] = 1

	device := doc.toEntity()
	if device.ID != "000000000000000000000001" {
		t.Errorf("Expected hex id, got %s", device.ID)
	}
	if device.Name != "Garage Lock" {
		t.Errorf("Expected name Garage Lock, got %s", device.Name)
	}
}
