package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLエラーコード
const (
	errUniqueViolation pq.ErrorCode = "23505"
)

// 一意制約違反を表すセンチネルエラー。
// 同時作成の競合を呼び出し側で区別して再試行できるようにする。
var (
	// ErrDuplicateEmail はusers.emailの一意制約違反を表す。
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrDuplicateAccount はaccounts(provider, provider_account_id)の一意制約違反を表す。
	ErrDuplicateAccount = errors.New("account with this provider identity already exists")
)

// isPqErr はerrが指定コードのPostgreSQLエラーかどうかを判定する。
func isPqErr(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == code
}
