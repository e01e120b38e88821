package place

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
	txcontext "waypoint/pkg/platform/tx"
)

// PostgresStore persists places in PostgreSQL. UNIQUE(external_id) decides
// which concurrent writer wins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const placeColumns = `id, external_id, name, address, latitude, longitude, category, created_at`

// GetOrCreate inserts p if its external id is new. A conflicting insert (a
// concurrent or earlier writer) falls back to reading the stored row.
func (s *PostgresStore) GetOrCreate(ctx context.Context, p *models.Place) (*models.Place, bool, error) {
	exec := txcontext.Executor(ctx, s.db)

	query := `
		INSERT INTO places (external_id, name, address, latitude, longitude, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING ` + placeColumns
	created, err := scanPlace(exec.QueryRowContext(ctx, query,
		p.ExternalID, p.Name, p.Address, p.Latitude, p.Longitude, p.Category, p.CreatedAt,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert place: %w", err)
	}

	existing, err := s.FindByExternalID(ctx, p.ExternalID)
	if err != nil {
		return nil, false, fmt.Errorf("reload place after conflict: %w", err)
	}
	return existing, false, nil
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID string) (*models.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE external_id = $1`
	p, err := scanPlace(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find place by external id: %w", err)
	}
	return p, nil
}

// FindByIDs returns the places for ids in the order given. Unknown ids are
// skipped.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.PlaceID) ([]*models.Place, error) {
	if len(ids) == 0 {
		return []*models.Place{}, nil
	}
	raw := make([]int64, len(ids))
	for i, placeID := range ids {
		raw[i] = int64(placeID)
	}

	query := `SELECT ` + placeColumns + ` FROM places WHERE id = ANY($1)`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find places by id: %w", err)
	}
	defer rows.Close()

	found := make(map[id.PlaceID]*models.Place, len(ids))
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		found[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}

	out := make([]*models.Place, 0, len(ids))
	for _, placeID := range ids {
		if p, ok := found[placeID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (*models.Place, error) {
	var p models.Place
	var placeID int64
	if err := row.Scan(&placeID, &p.ExternalID, &p.Name, &p.Address, &p.Latitude, &p.Longitude, &p.Category, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ID = id.PlaceID(placeID)
	return &p, nil
}
