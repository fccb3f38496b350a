package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	xerrors "taskdeck/internal/errors"
	"taskdeck/pkg/logger"
)

// Service 校验登录凭据。登录成功不会签发任何会话或令牌。
type Service struct {
	store Store
	audit *slog.Logger
}

// NewService 构造登录服务实例。
func NewService(store Store) *Service {
	return &Service{store: store, audit: logger.Audit()}
}

// Login 要求用户名与密码逐字节相等，成功时返回用户名。
// 每次尝试都会写入审计日志，日志中不包含密码。
func (s *Service) Login(ctx context.Context, creds Credentials, remoteAddr string) (string, error) {
	if s == nil || s.store == nil {
		return "", xerrors.New(xerrors.CodeInitializationFailure, "用户存储未初始化")
	}
	user, err := s.store.FindUserByUsername(ctx, creds.Username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		s.record(creds.Username, remoteAddr, "unknown_user")
		return "", ErrInvalidCredentials
	case err != nil:
		s.record(creds.Username, remoteAddr, "error")
		return "", xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询用户失败")
	}

	if user.Username != creds.Username ||
		subtle.ConstantTimeCompare([]byte(user.Password), []byte(creds.Password)) != 1 {
		s.record(creds.Username, remoteAddr, "bad_password")
		return "", ErrInvalidCredentials
	}
	s.record(user.Username, remoteAddr, "success")
	return user.Username, nil
}

func (s *Service) record(username, remoteAddr, outcome string) {
	audit := s.audit
	if audit == nil {
		audit = logger.Audit()
	}
	level := slog.LevelInfo
	if outcome != "success" {
		level = slog.LevelWarn
	}
	audit.Log(context.Background(), level, "login_attempt",
		slog.String("username", username),
		slog.String("remote_addr", remoteAddr),
		slog.String("outcome", outcome),
	)
}
