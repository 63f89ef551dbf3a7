package repository

import (
	"context"

	"github.com/njbartlett/pfnext-backend/internal/models"
)

type SessionTypeRepository struct {
	db DBTX
}

func NewSessionTypeRepository(db DBTX) *SessionTypeRepository {
	return &SessionTypeRepository{db: db}
}

func (r *SessionTypeRepository) Create(ctx context.Context, name string, requiresTrainer bool, cost int16) (*models.SessionType, error) {
	query := `
		INSERT INTO session_type (name, requires_trainer, cost)
		VALUES ($1, $2, $3)
		RETURNING id, name, requires_trainer, cost
	`
	var st models.SessionType
	err := r.db.QueryRow(ctx, query, name, requiresTrainer, cost).
		Scan(&st.ID, &st.Name, &st.RequiresTrainer, &st.Cost)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *SessionTypeRepository) GetByID(ctx context.Context, id int32) (*models.SessionType, error) {
	query := `
		SELECT id, name, requires_trainer, cost
		FROM session_type
		WHERE id = $1
	`
	var st models.SessionType
	err := r.db.QueryRow(ctx, query, id).
		Scan(&st.ID, &st.Name, &st.RequiresTrainer, &st.Cost)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *SessionTypeRepository) List(ctx context.Context) ([]models.SessionType, error) {
	query := `
		SELECT id, name, requires_trainer, cost
		FROM session_type
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]models.SessionType, 0)
	for rows.Next() {
		var st models.SessionType
		if err := rows.Scan(&st.ID, &st.Name, &st.RequiresTrainer, &st.Cost); err != nil {
			return nil, err
		}
		types = append(types, st)
	}
	return types, rows.Err()
}

func (r *SessionTypeRepository) Update(ctx context.Context, st models.SessionType) (*models.SessionType, error) {
	query := `
		UPDATE session_type
		SET name = $2, requires_trainer = $3, cost = $4
		WHERE id = $1
		RETURNING id, name, requires_trainer, cost
	`
	var updated models.SessionType
	err := r.db.QueryRow(ctx, query, st.ID, st.Name, st.RequiresTrainer, st.Cost).
		Scan(&updated.ID, &updated.Name, &updated.RequiresTrainer, &updated.Cost)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *SessionTypeRepository) Delete(ctx context.Context, id int32) error {
	query := `DELETE FROM session_type WHERE id = $1 RETURNING id`
	var deleted int32
	return r.db.QueryRow(ctx, query, id).Scan(&deleted)
}
