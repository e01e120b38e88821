package membership

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

// PostgresStore persists memberships in the list_places table.
// UNIQUE(list_id, place_id) settles concurrent adds.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const foreignKeyViolation = "23503"

// Add inserts the membership. A conflicting pair yields no row and is
// reported as ErrAlreadyUsed. A list deleted underneath the insert is
// reported as ErrNotFound.
func (s *PostgresStore) Add(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO list_places (list_id, place_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (list_id, place_id) DO NOTHING
		RETURNING id
	`
	var membershipID int64
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query,
		int64(m.ListID), int64(m.PlaceID), m.CreatedAt,
	).Scan(&membershipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrAlreadyUsed
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("add membership: %w", err)
	}
	m.ID = id.MembershipID(membershipID)
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, listID id.ListID, placeID id.PlaceID) error {
	result, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM list_places WHERE list_id = $1 AND place_id = $2`,
		int64(listID), int64(placeID),
	)
	if err != nil {
		return fmt.Errorf("remove membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove membership rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByList(ctx context.Context, listID id.ListID) (int, error) {
	result, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM list_places WHERE list_id = $1`, int64(listID),
	)
	if err != nil {
		return 0, fmt.Errorf("delete memberships by list: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete memberships rows affected: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) PlaceIDsByList(ctx context.Context, listID id.ListID) ([]id.PlaceID, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT place_id FROM list_places WHERE list_id = $1 ORDER BY id`, int64(listID),
	)
	if err != nil {
		return nil, fmt.Errorf("list places of list: %w", err)
	}
	defer rows.Close()

	out := make([]id.PlaceID, 0)
	for rows.Next() {
		var placeID int64
		if err := rows.Scan(&placeID); err != nil {
			return nil, fmt.Errorf("scan place id: %w", err)
		}
		out = append(out, id.PlaceID(placeID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate place ids: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListIDsContaining(ctx context.Context, placeID id.PlaceID) ([]id.ListID, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT list_id FROM list_places WHERE place_id = $1 ORDER BY list_id`, int64(placeID),
	)
	if err != nil {
		return nil, fmt.Errorf("list lists containing place: %w", err)
	}
	defer rows.Close()

	out := make([]id.ListID, 0)
	for rows.Next() {
		var listID int64
		if err := rows.Scan(&listID); err != nil {
			return nil, fmt.Errorf("scan list id: %w", err)
		}
		out = append(out, id.ListID(listID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list ids: %w", err)
	}
	return out, nil
}
