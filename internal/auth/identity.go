package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/muauth/internal/model"
	"github.com/hitoshi/muauth/internal/repository"
)

// userAttributes は新規ユーザー作成時に設定する追加属性。
type userAttributes struct {
	FirstName     string
	LastName      string
	EmailVerified bool
}

// findOrCreateUser はメールアドレスでユーザーを検索し、存在しない場合は作成する。
// 同一メールアドレスへの同時作成はemail一意制約が調停する。作成に敗れた側は
// ErrDuplicateEmailを受け取り、検索として再試行する。呼び出し側にこの競合が
// エラーとして伝播することはない。
func (s *Service) findOrCreateUser(ctx context.Context, email string, attrs userAttributes) (*model.User, bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user != nil {
		return user, false, nil
	}

	now := time.Now()
	newUser := &model.User{
		ID:            model.NewUserID(),
		Email:         email,
		FirstName:     attrs.FirstName,
		LastName:      attrs.LastName,
		EmailVerified: attrs.EmailVerified,
		Role:          model.RoleClient,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// 同時作成に敗れた場合は勝った側の行を読み直す
			existing, ferr := s.users.FindByEmail(ctx, email)
			if ferr != nil {
				return nil, false, fmt.Errorf("failed to find user after duplicate: %w", ferr)
			}
			if existing == nil {
				return nil, false, fmt.Errorf("user disappeared after duplicate email conflict")
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("email", email),
	)

	return newUser, true, nil
}
