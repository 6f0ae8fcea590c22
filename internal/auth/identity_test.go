package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/hitoshi/muauth/internal/model"
	"github.com/hitoshi/muauth/internal/repository"
)

func TestFindOrCreateUser_ExistingUser_ReturnsWithoutCreate(t *testing.T) {
	ctx := context.Background()

	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "usr_existing", Email: email}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			t.Fatal("Create should not be called for existing user")
			return nil
		},
	}

	svc := newTestService(nil, nil, users, nil, nil, nil, nil)

	user, isNew, err := svc.findOrCreateUser(ctx, "hit@example.com", userAttributes{})
	if err != nil {
		t.Fatalf("findOrCreateUser() error = %v", err)
	}
	if isNew {
		t.Error("expected isNew = false")
	}
	if user.ID != "usr_existing" {
		t.Errorf("user ID = %q, want %q", user.ID, "usr_existing")
	}
}

func TestFindOrCreateUser_NewUser_CreatesWithPrefixedID(t *testing.T) {
	ctx := context.Background()

	var created *model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}

	svc := newTestService(nil, nil, users, nil, nil, nil, nil)

	user, isNew, err := svc.findOrCreateUser(ctx, "miss@example.com", userAttributes{
		FirstName:     "Hanako",
		LastName:      "Sato",
		EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("findOrCreateUser() error = %v", err)
	}
	if !isNew {
		t.Error("expected isNew = true")
	}
	if created == nil {
		t.Fatal("expected user to be created")
	}
	if !strings.HasPrefix(user.ID, "usr_") {
		t.Errorf("user ID = %q, want usr_ prefix", user.ID)
	}
	if user.FirstName != "Hanako" || user.LastName != "Sato" {
		t.Errorf("user name = (%q, %q), want (Hanako, Sato)", user.FirstName, user.LastName)
	}
	if user.Role != model.RoleClient {
		t.Errorf("user role = %q, want %q", user.Role, model.RoleClient)
	}
}

func TestFindOrCreateUser_DuplicateEmailRace_RetriesAsLookup(t *testing.T) {
	ctx := context.Background()

	// 1回目のFindByEmailは空振り、Createが一意制約違反、
	// 2回目のFindByEmailで勝った側の行を返すシナリオ。
	calls := 0
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &model.User{ID: "usr_winner", Email: email}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}

	svc := newTestService(nil, nil, users, nil, nil, nil, nil)

	user, isNew, err := svc.findOrCreateUser(ctx, "race@example.com", userAttributes{})
	if err != nil {
		t.Fatalf("findOrCreateUser() error = %v", err)
	}
	if isNew {
		t.Error("race loser should report isNew = false")
	}
	if user.ID != "usr_winner" {
		t.Errorf("user ID = %q, want winner's ID %q", user.ID, "usr_winner")
	}
	if calls != 2 {
		t.Errorf("FindByEmail called %d times, want 2", calls)
	}
}
