package repositories

import (
	"context"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// PractitionerRepository persists practitioners
type PractitionerRepository interface {
	Create(ctx context.Context, practitioner *entities.Practitioner) error
	GetByID(ctx context.Context, id string) (*entities.Practitioner, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entities.Practitioner, error)
}
