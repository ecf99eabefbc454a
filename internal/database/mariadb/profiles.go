package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const errDuplicateEntry = 1062

// ProfileRepository provides MariaDB-backed profile storage.
type ProfileRepository struct {
	pool *Pool
}

// NewProfileRepository creates a new MariaDB profile repository.
func NewProfileRepository(pool *Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// encodeEmbedding stores the embedding as a JSON list; nil for no embedding.
func encodeEmbedding(embedding []float32) ([]byte, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return data, nil
}

func decodeEmbedding(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	return embedding, nil
}

const profileColumns = "id, name, employee_id, department, embedding, model, registered_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*database.StoredProfile, error) {
	var p database.StoredProfile
	var blob []byte
	if err := row.Scan(&p.ID, &p.Name, &p.EmployeeID, &p.Department, &blob, &p.Model, &p.RegisteredAt); err != nil {
		return nil, err
	}
	embedding, err := decodeEmbedding(blob)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	p.Embedding = embedding
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
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmployeeID retrieves a profile by employee ID.
func (r *ProfileRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*database.StoredProfile, error) {
	return r.getOne(ctx, "employee_id = ?", employeeID)
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

// FindNearest loads every profile with an embedding and ranks them in memory.
func (r *ProfileRepository) FindNearest(ctx context.Context, embedding []float32, limit int) ([]database.StoredProfile, []float64, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE embedding IS NOT NULL")
	if err != nil {
		return nil, nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var candidates []database.StoredProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan profile: %w", err)
		}
		candidates = append(candidates, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate profiles: %w", err)
	}

	profiles, distances := database.Nearest(candidates, embedding, limit)
	return profiles, distances, nil
}

// Save inserts or replaces a profile. ON DUPLICATE KEY also fires on the
// employee_id unique key, so a conflicting employee ID is checked first.
func (r *ProfileRepository) Save(ctx context.Context, p database.StoredProfile) error {
	existing, err := r.GetByEmployeeID(ctx, p.EmployeeID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != p.ID {
		return database.ErrDuplicateEmployeeID
	}

	blob, err := encodeEmbedding(p.Embedding)
	if err != nil {
		return err
	}

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, employee_id, department, embedding, model, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			employee_id = VALUES(employee_id),
			department = VALUES(department),
			embedding = VALUES(embedding),
			model = VALUES(model)
	`, p.ID, p.Name, p.EmployeeID, p.Department, blob, p.Model, p.RegisteredAt)
	if isDuplicate(err) {
		return database.ErrDuplicateEmployeeID
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Delete removes a profile.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

var _ database.ProfileWriter = (*ProfileRepository)(nil)
