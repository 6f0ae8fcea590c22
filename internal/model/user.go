// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role はユーザーの役割を表す。
// この認証コアでは属性として保持するのみで、権限制御は行わない。
type Role string

const (
	// RoleOwner はオーナー。
	RoleOwner Role = "owner"
	// RoleSuperAdmin はスーパー管理者。
	RoleSuperAdmin Role = "super-admin"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
	// RoleClient は一般ユーザー。新規作成時のデフォルト。
	RoleClient Role = "client"
)

// User はサービス利用ユーザーを表す。
// メールアドレスは全体で一意であり、アカウントとセッションの集約ルートとなる。
type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	EmailVerified bool
	Role          Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewUserID はユーザーIDを生成する。
func NewUserID() string {
	return "usr_" + uuid.New().String()
}
