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

// AccountLink はアカウント紐付けの入力を表す。
type AccountLink struct {
	Provider          string
	Type              string
	ProviderAccountID string

	// OAuthトークン素材（マジックリンクでは空）
	AccessToken string
	TokenType   string
	Scope       string
}

// linkAccount は(provider, provider_account_id)のアカウントをユーザーに紐付ける。
//   - 同一ユーザーに紐付け済みの場合はそのまま返す（冪等な再紐付け）。
//   - 別ユーザーに紐付け済みの場合はACCOUNT_CONFLICTを返す。
//   - 存在しない場合は新規作成する。同時作成に敗れた側は一意制約違反を受け、
//     既存行を読み直して同じ所有者検査を適用する。
func (s *Service) linkAccount(ctx context.Context, user *model.User, link AccountLink) (*model.Account, error) {
	existing, err := s.accounts.FindByProviderAndAccountID(ctx, link.Provider, link.ProviderAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if existing != nil {
		if existing.UserID != user.ID {
			return nil, model.NewAccountConflictError()
		}
		return existing, nil
	}

	now := time.Now()
	account := &model.Account{
		ID:                model.NewAccountID(),
		UserID:            user.ID,
		Provider:          link.Provider,
		Type:              link.Type,
		ProviderAccountID: link.ProviderAccountID,
		AccessToken:       link.AccessToken,
		TokenType:         link.TokenType,
		Scope:             link.Scope,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			// 同時紐付けに敗れた場合は勝った側の行に対して所有者検査を行う
			winner, ferr := s.accounts.FindByProviderAndAccountID(ctx, link.Provider, link.ProviderAccountID)
			if ferr != nil {
				return nil, fmt.Errorf("failed to find account after duplicate: %w", ferr)
			}
			if winner == nil {
				return nil, fmt.Errorf("account disappeared after duplicate conflict")
			}
			if winner.UserID != user.ID {
				return nil, model.NewAccountConflictError()
			}
			return winner, nil
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account linked",
		slog.String("user_id", user.ID),
		slog.String("provider", link.Provider),
	)

	return account, nil
}
