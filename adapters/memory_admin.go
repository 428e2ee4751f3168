package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/housei/dashboard/domain/entities"
)

// MemoryAdminRepository keeps admin records in memory
type MemoryAdminRepository struct {
	mu     sync.RWMutex
	admins []*entities.AdminRecord
}

// NewMemoryAdminRepository creates a new in-memory admin repository
func NewMemoryAdminRepository() *MemoryAdminRepository {
	return &MemoryAdminRepository{}
}

// FindByCredentials implements AdminRepository interface
func (m *MemoryAdminRepository) FindByCredentials(ctx context.Context, email, password string) (*entities.AdminRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// First match wins, like a query without ordering
	for _, admin := range m.admins {
		if admin.Email == email && admin.Password == password {
			adminCopy := *admin
			return &adminCopy, nil
		}
	}
	return nil, entities.ErrAdminNotFound
}

// Create implements AdminRepository interface
func (m *MemoryAdminRepository) Create(ctx context.Context, admin *entities.AdminRecord) error {
	if admin == nil {
		return errors.New("admin cannot be nil")
	}
	if err := admin.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	admin.ID = uuid.New().String()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now()
	}

	adminCopy := *admin
	m.admins = append(m.admins, &adminCopy)
	return nil
}
