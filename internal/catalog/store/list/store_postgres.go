package list

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
	txcontext "waypoint/pkg/platform/tx"
)

// PostgresStore persists lists in PostgreSQL. BIGSERIAL ids give creation
// order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

const listColumns = `id, user_id, name, is_default, created_at`

func (s *PostgresStore) Create(ctx context.Context, l *models.List) error {
	query := `
		INSERT INTO lists (user_id, name, is_default, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var listID int64
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(l.UserID), l.Name, l.IsDefault, l.CreatedAt,
	).Scan(&listID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create list: %w", err)
	}
	l.ID = id.ListID(listID)
	return nil
}

// CreateMany inserts lists in slice order. Callers needing atomicity run it
// inside a transaction.
func (s *PostgresStore) CreateMany(ctx context.Context, lists []*models.List) error {
	for _, l := range lists {
		if err := s.Create(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists WHERE user_id = $1 ORDER BY id`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list lists by user: %w", err)
	}
	defer rows.Close()

	out := make([]*models.List, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByUserAndID(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists WHERE id = $1 AND user_id = $2`
	l, err := scanList(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, int64(listID), uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find list: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) FindByUserAndIDForUpdate(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists WHERE id = $1 AND user_id = $2 FOR UPDATE`
	l, err := scanList(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, int64(listID), uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find list for update: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) Delete(ctx context.Context, listID id.ListID) error {
	result, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM lists WHERE id = $1`, int64(listID))
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete list rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// CountDefaultByUser counts the user's default lists.
func (s *PostgresStore) CountDefaultByUser(ctx context.Context, userID id.UserID) (int, error) {
	var n int
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lists WHERE user_id = $1 AND is_default`, uuid.UUID(userID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count default lists: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (*models.List, error) {
	var l models.List
	var listID int64
	var userID uuid.UUID
	if err := row.Scan(&listID, &userID, &l.Name, &l.IsDefault, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.ID = id.ListID(listID)
	l.UserID = id.UserID(userID)
	return &l, nil
}
