package repository

import (
	"context"

	"github.com/njbartlett/pfnext-backend/internal/models"
)

type LocationRepository struct {
	db DBTX
}

func NewLocationRepository(db DBTX) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Create(ctx context.Context, name, address string) (*models.Location, error) {
	query := `
		INSERT INTO location (name, address)
		VALUES ($1, $2)
		RETURNING id, name, address
	`
	var loc models.Location
	err := r.db.QueryRow(ctx, query, name, address).
		Scan(&loc.ID, &loc.Name, &loc.Address)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id int32) (*models.Location, error) {
	query := `
		SELECT id, name, address
		FROM location
		WHERE id = $1
	`
	var loc models.Location
	err := r.db.QueryRow(ctx, query, id).Scan(&loc.ID, &loc.Name, &loc.Address)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *LocationRepository) List(ctx context.Context) ([]models.Location, error) {
	query := `
		SELECT id, name, address
		FROM location
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]models.Location, 0)
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (r *LocationRepository) Update(ctx context.Context, loc models.Location) (*models.Location, error) {
	query := `
		UPDATE location
		SET name = $2, address = $3
		WHERE id = $1
		RETURNING id, name, address
	`
	var updated models.Location
	err := r.db.QueryRow(ctx, query, loc.ID, loc.Name, loc.Address).
		Scan(&updated.ID, &updated.Name, &updated.Address)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *LocationRepository) Delete(ctx context.Context, id int32) error {
	query := `DELETE FROM location WHERE id = $1 RETURNING id`
	var deleted int32
	return r.db.QueryRow(ctx, query, id).Scan(&deleted)
}
