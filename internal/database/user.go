package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/kokodi/internal/models"
)

// UserStore keeps accounts in the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Save upserts u. A login owned by another id yields models.ErrConflict.
func (st *UserStore) Save(ctx context.Context, u *models.User) (*models.User, error) {
	q := `
		INSERT INTO users (id, login, password, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET login=$2, password=$3, name=$4
	`
	err := pgx.BeginTxFunc(ctx, st.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, u.ID, u.Login, u.Password, u.Name, u.CreatedAt)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: login %s", models.ErrConflict, u.Login)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	out := *u
	return &out, nil
}

const userColumns = `id, login, password, name, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Login, &u.Password, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUser returns the user with id or models.ErrNotFound.
func (st *UserStore) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(st.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// FindByLogin returns the user with login or models.ErrNotFound.
func (st *UserStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return scanUser(st.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE login=$1`, login))
}

// List returns all users ordered by login.
func (st *UserStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := st.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY login`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
