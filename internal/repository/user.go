package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

type UserRepository interface {
	Save(ctx context.Context, user *entity.User) (bool, error)
	List(ctx context.Context) ([]entity.User, error)
}

type userRepository struct {
	conn *sql.DB
}

func NewUserRepository(conn *sql.DB) UserRepository {
	return &userRepository{
		conn: conn,
	}
}

// Save remembers user once. It reports whether the user was new; a known user keeps the
// username it was first seen with.
func (that *userRepository) Save(ctx context.Context, user *entity.User) (bool, error) {
	query := `INSERT OR IGNORE INTO users (user_id, username, created_at) VALUES (?, ?, ?)`

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := that.conn.ExecContext(ctx, query, user.ID, user.Username, createdAt)
	if err != nil {
		return false, fmt.Errorf("can't save user: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("can't save user: %w", err)
	}

	return inserted > 0, nil
}

func (that *userRepository) List(ctx context.Context) ([]entity.User, error) {
	query := `SELECT user_id, username, created_at FROM users ORDER BY created_at, user_id`

	rows, err := that.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("can't list users: %w", err)
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		var user entity.User
		if err = rows.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("can't scan user: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list users: %w", err)
	}

	return users, nil
}
