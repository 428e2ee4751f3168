package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/housei/dashboard/domain/entities"
)

const adminCollection = "admin"

type adminDocument struct {
	ObjectID             primitive.ObjectID `bson:"_id,omitempty"`
	entities.AdminRecord `bson:",inline"`
}

// AdminRepository stores dashboard credentials in the admin collection
type AdminRepository struct {
	collection *mongo.Collection
}

// NewAdminRepository creates a new MongoDB admin repository
func NewAdminRepository(db *mongo.Database) *AdminRepository {
	return &AdminRepository{
		collection: db.Collection(adminCollection),
	}
}

// FindByCredentials matches email and password by plain equality
func (r *AdminRepository) FindByCredentials(ctx context.Context, email, password string) (*entities.AdminRecord, error) {
	filter := bson.M{
		"email":    email,
		"password": password,
	}

	var doc adminDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to query admin: %w", err)
	}

	admin := doc.AdminRecord
	admin.ID = doc.ObjectID.Hex()
	return &admin, nil
}

// Create inserts a new admin record
func (r *AdminRepository) Create(ctx context.Context, admin *entities.AdminRecord) error {
	if admin == nil {
		return errors.New("admin cannot be nil")
	}
	if err := admin.Validate(); err != nil {
		return err
	}

	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	result, err := r.collection.InsertOne(ctx, adminDocument{AdminRecord: *admin})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		admin.ID = oid.Hex()
	}
	return nil
}
