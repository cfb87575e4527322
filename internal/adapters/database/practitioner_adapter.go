package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

// PractitionerAdapter implements the PractitionerRepository interface
type PractitionerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPractitionerAdapter creates a new practitioner repository adapter
func NewPractitionerAdapter(client *postgres.Client) repositories.PractitionerRepository {
	return &PractitionerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var practitionerColumns = []interface{}{
	"id", "name", "email", "time_zone", "active", "created_at", "updated_at",
}

// Create persists a new practitioner
func (a *PractitionerAdapter) Create(ctx context.Context, practitioner *entities.Practitioner) error {
	record := goqu.Record{
		"id":         practitioner.ID,
		"name":       practitioner.Name,
		"email":      practitioner.Email,
		"time_zone":  practitioner.TimeZone,
		"active":     practitioner.Active,
		"created_at": practitioner.CreatedAt,
		"updated_at": practitioner.UpdatedAt,
	}

	query, args, err := a.db.Insert("practitioners").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create practitioner", err)
	}

	return nil
}

// GetByID retrieves a practitioner by id
func (a *PractitionerAdapter) GetByID(ctx context.Context, id string) (*entities.Practitioner, error) {
	query, args, err := a.db.Select(practitionerColumns...).
		From("practitioners").
		Where(goqu.Ex{"id": id}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	practitioner := &entities.Practitioner{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&practitioner.ID,
		&practitioner.Name,
		&practitioner.Email,
		&practitioner.TimeZone,
		&practitioner.Active,
		&practitioner.CreatedAt,
		&practitioner.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("practitioner %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get practitioner", err)
	}

	return practitioner, nil
}

// List returns practitioners ordered by name
func (a *PractitionerAdapter) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entities.Practitioner, error) {
	ds := a.db.Select(practitionerColumns...).From("practitioners")
	if activeOnly {
		ds = ds.Where(goqu.Ex{"active": true})
	}
	ds = ds.Order(goqu.I("name").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list practitioners", err)
	}
	defer rows.Close()

	var practitioners []*entities.Practitioner
	for rows.Next() {
		practitioner := &entities.Practitioner{}
		if err := rows.Scan(
			&practitioner.ID,
			&practitioner.Name,
			&practitioner.Email,
			&practitioner.TimeZone,
			&practitioner.Active,
			&practitioner.CreatedAt,
			&practitioner.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan practitioner", err)
		}
		practitioners = append(practitioners, practitioner)
	}

	return practitioners, nil
}
