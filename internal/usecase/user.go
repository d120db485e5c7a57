package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

type userRepo interface {
	Save(ctx context.Context, user *entity.User) (bool, error)
	List(ctx context.Context) ([]entity.User, error)
}

// UserUseCase keeps the directory of users who have talked to the bot.
type UserUseCase struct {
	logger *slog.Logger
	repo   userRepo
}

func NewUserUseCase(logger *slog.Logger, repo userRepo) *UserUseCase {
	return &UserUseCase{
		logger: logger.With("component", "users"),
		repo:   repo,
	}
}

// Remember stores user unless it is already known.
func (that *UserUseCase) Remember(ctx context.Context, user *entity.User) error {
	inserted, err := that.repo.Save(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to save user into storage: %w", err)
	}

	if inserted {
		that.logger.Info("new user", "user_id", user.ID, "username", user.Username)
	}

	return nil
}

// Recipients lists every remembered user, oldest first.
func (that *UserUseCase) Recipients(ctx context.Context) ([]entity.User, error) {
	users, err := that.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users from storage: %w", err)
	}

	return users, nil
}
