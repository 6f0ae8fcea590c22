package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/muauth/internal/model"
	"github.com/hitoshi/muauth/internal/repository"
)

func TestLinkAccount_AlreadyLinkedToSameUser_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "usr_1"}

	accounts := &mockAccountRepo{
		findByProviderFn: func(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
			return &model.Account{
				ID:                "act_1",
				UserID:            "usr_1",
				Provider:          provider,
				ProviderAccountID: providerAccountID,
			}, nil
		},
		createFn: func(ctx context.Context, account *model.Account) error {
			t.Fatal("Create should not be called when account is already linked")
			return nil
		},
	}

	svc := newTestService(nil, nil, nil, accounts, nil, nil, nil)

	account, err := svc.linkAccount(ctx, user, AccountLink{
		Provider:          model.ProviderGitHub,
		Type:              model.AccountTypeOAuth,
		ProviderAccountID: "12345",
	})
	if err != nil {
		t.Fatalf("linkAccount() error = %v", err)
	}
	if account.ID != "act_1" {
		t.Errorf("account ID = %q, want existing %q", account.ID, "act_1")
	}
}

func TestLinkAccount_LinkedToOtherUser_ReturnsAccountConflict(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "usr_1"}

	accounts := &mockAccountRepo{
		findByProviderFn: func(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
			return &model.Account{ID: "act_other", UserID: "usr_other"}, nil
		},
	}

	svc := newTestService(nil, nil, nil, accounts, nil, nil, nil)

	_, err := svc.linkAccount(ctx, user, AccountLink{
		Provider:          model.ProviderGitHub,
		Type:              model.AccountTypeOAuth,
		ProviderAccountID: "12345",
	})
	if err == nil {
		t.Fatal("expected account conflict error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeAccountConflict {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeAccountConflict)
	}
}

func TestLinkAccount_NewAccount_Creates(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "usr_1"}

	var created *model.Account
	accounts := &mockAccountRepo{
		createFn: func(ctx context.Context, account *model.Account) error {
			created = account
			return nil
		},
	}

	svc := newTestService(nil, nil, nil, accounts, nil, nil, nil)

	account, err := svc.linkAccount(ctx, user, AccountLink{
		Provider:          model.ProviderMagicLink,
		Type:              model.AccountTypeMagicLink,
		ProviderAccountID: "usr_1",
	})
	if err != nil {
		t.Fatalf("linkAccount() error = %v", err)
	}
	if created == nil {
		t.Fatal("expected account to be created")
	}
	if account.UserID != "usr_1" {
		t.Errorf("account userID = %q, want %q", account.UserID, "usr_1")
	}
	if account.Type != model.AccountTypeMagicLink {
		t.Errorf("account type = %q, want %q", account.Type, model.AccountTypeMagicLink)
	}
}

func TestLinkAccount_DuplicateRace_WinnerOwnedBySameUser_Succeeds(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "usr_1"}

	calls := 0
	accounts := &mockAccountRepo{
		findByProviderFn: func(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			// 勝った側の行は同一ユーザーに紐付いている
			return &model.Account{ID: "act_winner", UserID: "usr_1"}, nil
		},
		createFn: func(ctx context.Context, account *model.Account) error {
			return repository.ErrDuplicateAccount
		},
	}

	svc := newTestService(nil, nil, nil, accounts, nil, nil, nil)

	account, err := svc.linkAccount(ctx, user, AccountLink{
		Provider:          model.ProviderGitHub,
		Type:              model.AccountTypeOAuth,
		ProviderAccountID: "12345",
	})
	if err != nil {
		t.Fatalf("linkAccount() error = %v", err)
	}
	if account.ID != "act_winner" {
		t.Errorf("account ID = %q, want winner's %q", account.ID, "act_winner")
	}
}

func TestLinkAccount_DuplicateRace_WinnerOwnedByOtherUser_ReturnsConflict(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "usr_1"}

	calls := 0
	accounts := &mockAccountRepo{
		findByProviderFn: func(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &model.Account{ID: "act_winner", UserID: "usr_other"}, nil
		},
		createFn: func(ctx context.Context, account *model.Account) error {
			return repository.ErrDuplicateAccount
		},
	}

	svc := newTestService(nil, nil, nil, accounts, nil, nil, nil)

	_, err := svc.linkAccount(ctx, user, AccountLink{
		Provider:          model.ProviderGitHub,
		Type:              model.AccountTypeOAuth,
		ProviderAccountID: "12345",
	})
	if err == nil {
		t.Fatal("expected account conflict error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeAccountConflict {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeAccountConflict)
	}
}
