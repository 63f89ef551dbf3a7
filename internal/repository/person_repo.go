package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/njbartlett/pfnext-backend/internal/policy"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PersonRepository struct {
	db DBTX
}

func NewPersonRepository(db DBTX) *PersonRepository {
	return &PersonRepository{db: db}
}

type CreatePersonInput struct {
	Name  string
	Email string
	Phone *string
	Roles policy.RoleSet
}

func (r *PersonRepository) Create(ctx context.Context, input CreatePersonInput) (*models.Person, error) {
	query := `
		INSERT INTO person (name, email, phone, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	person := models.Person{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
		Roles: input.Roles,
	}
	err := r.db.QueryRow(ctx, query, input.Name, input.Email, input.Phone, input.Roles.Encode()).
		Scan(&person.ID)
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *PersonRepository) GetByEmail(ctx context.Context, email string) (*models.Person, error) {
	query := `
		SELECT id, name, email, phone, pwd, roles
		FROM person
		WHERE email = $1
	`
	return scanPerson(r.db.QueryRow(ctx, query, email))
}

func (r *PersonRepository) GetByID(ctx context.Context, id int64) (*models.Person, error) {
	query := `
		SELECT id, name, email, phone, pwd, roles
		FROM person
		WHERE id = $1
	`
	return scanPerson(r.db.QueryRow(ctx, query, id))
}

func (r *PersonRepository) List(ctx context.Context) ([]models.Person, error) {
	query := `
		SELECT id, name, email, phone, pwd, roles
		FROM person
		ORDER BY name, id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	persons := make([]models.Person, 0)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *person)
	}
	return persons, rows.Err()
}

// SetPasswordClearingRecovery stores the new hash and removes any live
// temporary password in one statement, so a consumed recovery can never be
// replayed against a half-updated account.
func (r *PersonRepository) SetPasswordClearingRecovery(ctx context.Context, personID int64, hash string) error {
	query := `
		WITH updated AS (
			UPDATE person SET pwd = $2 WHERE id = $1 RETURNING id
		)
		DELETE FROM temp_password
		WHERE person_id IN (SELECT id FROM updated)
	`
	_, err := r.db.Exec(ctx, query, personID, hash)
	return err
}

func scanPerson(row pgx.Row) (*models.Person, error) {
	var person models.Person
	var roles string
	if err := row.Scan(
		&person.ID,
		&person.Name,
		&person.Email,
		&person.Phone,
		&person.PasswordHash,
		&roles,
	); err != nil {
		return nil, err
	}
	person.Roles = policy.ParseRoleSet(roles)
	return &person, nil
}
