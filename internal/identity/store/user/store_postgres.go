package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"waypoint/internal/identity/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/sentinel"
	txcontext "waypoint/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts u. A taken username returns sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		u.ID.String(), u.Username, string(u.PasswordHash), u.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`
	return s.findOne(ctx, query, userID.String())
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`
	return s.findOne(ctx, query, strings.TrimSpace(username))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u       models.User
		rawID   string
		rawHash string
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, arg).
		Scan(&rawID, &u.Username, &rawHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	userID, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan user id: %w", err)
	}
	u.ID = userID
	u.PasswordHash = []byte(rawHash)
	return &u, nil
}
