package auth

import (
	"context"
	"errors"

	xerrors "taskdeck/internal/errors"
)

const CodeInvalidCredentials xerrors.Code = "INVALID_CREDENTIALS"

// ErrInvalidCredentials 表示用户名或密码不匹配。
var ErrInvalidCredentials = xerrors.New(CodeInvalidCredentials, "ユーザー名またはパスワードが違います")

// ErrUserNotFound 由 Store 在用户不存在时返回。
var ErrUserNotFound = errors.New("user not found")

func init() {
	xerrors.RegisterKind(CodeInvalidCredentials, xerrors.CodeUnauthenticated, xerrors.Attributes{
		Message:  "ユーザー名またはパスワードが違います",
		Severity: xerrors.SeverityInfo,
	})
}

// Store abstracts the user catalogue. Implementations must be safe for
// concurrent use.
type Store interface {
	FindUserByUsername(ctx context.Context, username string) (*User, error)
}

// SeedWriter is implemented by stores that can insert the demo account when
// it is missing.
type SeedWriter interface {
	EnsureUser(ctx context.Context, seed Seed) error
}

// User represents a persisted account. Passwords are stored in plain text.
type User struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Password string `db:"password"`
}

// Credentials is the payload accepted by the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Seed describes the demo account created during schema initialisation.
type Seed struct {
	Username string
	Password string
}
