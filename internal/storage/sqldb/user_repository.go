package sqldb

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"log/slog"

	"taskdeck/internal/auth"
	"taskdeck/pkg/logger"
)

// UserRepository 实现 auth.Store 与 auth.SeedWriter。
type UserRepository struct {
	db *DB
}

var (
	_ auth.Store      = (*UserRepository)(nil)
	_ auth.SeedWriter = (*UserRepository)(nil)
)

// FindUserByUsername 实现 auth.Store。
func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	var user auth.User
	err := r.db.x.GetContext(ctx, &user,
		`SELECT id, username, password FROM users WHERE username = ? AND password IS NOT NULL`, username)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, storageError(err, "查询用户失败")
	}
	return &user, nil
}

// EnsureUser 实现 auth.SeedWriter。用户名已存在时不做修改。
func (r *UserRepository) EnsureUser(ctx context.Context, seed auth.Seed) error {
	res, err := r.db.x.ExecContext(ctx, r.db.dialect.insertUser, seed.Username, seed.Password)
	if err != nil {
		return storageError(err, "初始化演示用户失败")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Named("storage").Info("已创建演示用户", slog.String("username", seed.Username))
	}
	return nil
}
