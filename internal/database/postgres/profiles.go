package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const uniqueViolation = "23505"

// ProfileRepository provides PostgreSQL-backed profile storage.
type ProfileRepository struct {
	pool *Pool
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(pool *Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = "id, name, employee_id, department, embedding, model, registered_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner, extra ...any) (*database.StoredProfile, error) {
	var p database.StoredProfile
	var vec *pgvector.Vector
	dest := append([]any{&p.ID, &p.Name, &p.EmployeeID, &p.Department, &vec, &p.Model, &p.RegisteredAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if vec != nil {
		p.Embedding = vec.Slice()
	}
	return &p, nil
}

func (r *ProfileRepository) getOne(ctx context.Context, where string, arg any) (*database.StoredProfile, error) {
	row := r.pool.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE "+where, arg)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

// Get retrieves a profile by ID.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*database.StoredProfile, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmployeeID retrieves a profile by employee ID.
func (r *ProfileRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*database.StoredProfile, error) {
	return r.getOne(ctx, "employee_id = $1", employeeID)
}

// List returns all profiles, newest first.
func (r *ProfileRepository) List(ctx context.Context) ([]database.StoredProfile, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM profiles ORDER BY registered_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []database.StoredProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

// Count returns the number of profiles.
func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

// FindNearest orders profiles by pgvector cosine distance (<=>).
func (r *ProfileRepository) FindNearest(ctx context.Context, embedding []float32, limit int) ([]database.StoredProfile, []float64, error) {
	query := `
		SELECT ` + profileColumns + `, embedding <=> $1 AS distance
		FROM profiles
		WHERE embedding IS NOT NULL AND vector_dims(embedding) = $3
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.db.QueryContext(ctx, query, pgvector.NewVector(embedding), limit, len(embedding))
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest profiles: %w", err)
	}
	defer rows.Close()

	var profiles []database.StoredProfile
	var distances []float64
	for rows.Next() {
		var distance float64
		p, err := scanProfile(rows, &distance)
		if err != nil {
			return nil, nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, distances, nil
}

// Save inserts or replaces a profile.
func (r *ProfileRepository) Save(ctx context.Context, p database.StoredProfile) error {
	var vec any
	if p.HasEmbedding() {
		vec = pgvector.NewVector(p.Embedding)
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, employee_id, department, embedding, model, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			employee_id = EXCLUDED.employee_id,
			department = EXCLUDED.department,
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model
	`, p.ID, p.Name, p.EmployeeID, p.Department, vec, p.Model, p.RegisteredAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return database.ErrDuplicateEmployeeID
		}
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Delete removes a profile.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

var _ database.ProfileWriter = (*ProfileRepository)(nil)
