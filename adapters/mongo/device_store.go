package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/domain/repositories"
)

const devicesCollection = "devices"

// deviceDocument is the stored shape of a device; the entity keeps its ID
// as a hex string
type deviceDocument struct {
	ObjectID        primitive.ObjectID `bson:"_id,omitempty"`
	entities.Device `bson:",inline"`
}

func (d deviceDocument) toEntity() entities.Device {
	device := d.Device
	device.ID = d.ObjectID.Hex()
	return device
}

// DeviceStore implements repositories.DeviceStore on a MongoDB collection,
// using change streams for live snapshots
type DeviceStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewDeviceStore creates a new MongoDB device store
func NewDeviceStore(db *mongo.Database, logger *zap.Logger) *DeviceStore {
	collection := db.Collection(devicesCollection)

	// Index backing the newest-first snapshot query
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		createdAtIndex := mongo.IndexModel{
			Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		}
		if _, err := collection.Indexes().CreateOne(ctx, createdAtIndex); err != nil {
			logger.Error("Failed to create device indexes", zap.Error(err))
		} else {
			logger.Info("Device indexes created successfully")
		}
	}()

	return &DeviceStore{
		collection: collection,
		logger:     logger,
	}
}

// Create implements repositories.DeviceStore
func (s *DeviceStore) Create(ctx context.Context, device *entities.Device) (string, error) {
	if device == nil {
		return "", errors.New("device cannot be nil")
	}

	doc := deviceDocument{Device: device.Clone()}
	// BSON dates carry millisecond precision
	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create device: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}

	device.ID = oid.Hex()
	device.CreatedAt = doc.CreatedAt

	s.logger.Info("Device created",
		zap.String("device_id", device.ID),
		zap.String("type", string(device.Type)))

	return device.ID, nil
}

// GetByID implements repositories.DeviceStore
func (s *DeviceStore) GetByID(ctx context.Context, id string) (*entities.Device, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id can never match a stored device
		return nil, entities.ErrDeviceNotFound
	}

	var doc deviceDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device %s: %w", id, err)
	}

	device := doc.toEntity()
	return &device, nil
}

// Update implements repositories.DeviceStore
func (s *DeviceStore) Update(ctx context.Context, id string, update entities.DeviceUpdate) error {
	if update.Empty() {
		return errors.New("update has no fields")
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entities.ErrDeviceNotFound
	}

	set := bson.M{}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.IsOnline != nil {
		set["is_online"] = *update.IsOnline
	}
	if update.SensorData != nil {
		set["sensor_data"] = *update.SensorData
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}

	// Check if the document was found and updated
	if result.MatchedCount == 0 {
		return entities.ErrDeviceNotFound
	}

	s.logger.Debug("Device updated", zap.String("device_id", id))
	return nil
}

// Delete implements repositories.DeviceStore. Deleting a missing device is
// not an error.
func (s *DeviceStore) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	s.logger.Info("Device deleted",
		zap.String("device_id", id),
		zap.Int64("deleted", result.DeletedCount))
	return nil
}

// Subscribe implements repositories.DeviceStore. The change stream is opened
// before the first snapshot is read so no write between the two is missed.
// Snapshots are delivered from a single goroutine, in stream order.
func (s *DeviceStore) Subscribe(ctx context.Context, onSnapshot repositories.SnapshotHandler, onError repositories.ErrorHandler) (repositories.Subscription, error) {
	if onSnapshot == nil {
		return nil, errors.New("snapshot handler cannot be nil")
	}
	if onError == nil {
		onError = func(error) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch devices: %w", err)
	}

	sub := &changeStreamSubscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer stream.Close(context.Background())

		s.deliver(ctx, onSnapshot, onError)
		for stream.Next(ctx) {
			s.deliver(ctx, onSnapshot, onError)
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			onError(fmt.Errorf("device change stream closed: %w", err))
		}
	}()

	return sub, nil
}

// deliver reads the whole collection newest first and hands it to onSnapshot
func (s *DeviceStore) deliver(ctx context.Context, onSnapshot repositories.SnapshotHandler, onError repositories.ErrorHandler) {
	devices, err := s.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			onError(err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	onSnapshot(devices)
}

// List implements repositories.DeviceStore
func (s *DeviceStore) List(ctx context.Context) ([]entities.Device, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}) // Most recent first

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer cursor.Close(ctx)

	devices := make([]entities.Device, 0)
	for cursor.Next(ctx) {
		var doc deviceDocument
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Error("Failed to decode device", zap.Error(err))
			continue
		}
		devices = append(devices, doc.toEntity())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("device cursor error: %w", err)
	}
	return devices, nil
}

type changeStreamSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops the change stream and waits for the delivery goroutine
func (s *changeStreamSubscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
