package sqldb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	xerrors "taskdeck/internal/errors"
	"taskdeck/pkg/logger"
)

// Config 描述数据库连接参数。
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DB 持有连接池以及当前方言。
type DB struct {
	x       *sqlx.DB
	dialect dialect
}

// Open 建立连接池并检查连通性，不执行迁移。
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var dsn string
	switch d.name {
	case dialectSQLite:
		dsn, err = sqliteDSN(cfg.DSN)
	case dialectMySQL:
		dsn, err = mysqlDSN(cfg.DSN)
	}
	if err != nil {
		return nil, err
	}

	x, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "打开数据库失败")
	}
	configurePool(x, d, cfg)

	if err := x.PingContext(ctx); err != nil {
		x.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到数据库")
	}
	logger.Named("storage").Info("数据库连接已建立", slog.String("driver", d.name))
	return &DB{x: x, dialect: d}, nil
}

func configurePool(x *sqlx.DB, d dialect, cfg Config) {
	if d.name == dialectSQLite {
		// SQLite 只允许一个写连接，单连接可以避免 database is locked。
		x.SetMaxOpenConns(1)
		x.SetMaxIdleConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		x.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		x.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		x.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		x.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		x.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		x.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		x.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// sqliteDSN 为文件路径补全外键与忙等待参数，并创建所在目录。
func sqliteDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "SQLite DSN 不能为空")
	}
	path, query, _ := strings.Cut(strings.TrimPrefix(raw, "file:"), "?")
	if path != ":memory:" && path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "SQLite DSN 参数无效")
	}
	if params.Get("_foreign_keys") == "" && params.Get("_fk") == "" {
		params.Set("_foreign_keys", "on")
	}
	if params.Get("_busy_timeout") == "" && params.Get("_timeout") == "" {
		params.Set("_busy_timeout", "5000")
	}
	return "file:" + path + "?" + params.Encode(), nil
}

// mysqlDSN 校验 DSN 并关闭多语句执行。
func mysqlDSN(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "MySQL DSN 无效")
	}
	cfg.MultiStatements = false
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Close 释放连接池。
func (db *DB) Close() error {
	if db == nil || db.x == nil {
		return nil
	}
	return db.x.Close()
}

// Ping 检查数据库是否可用，用于健康检查。
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.x == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "数据库未初始化")
	}
	if err := db.x.PingContext(ctx); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "数据库不可用",
			xerrors.WithSeverity(xerrors.SeverityWarning), xerrors.WithMetadata("driver", db.dialect.name))
	}
	return nil
}

// Driver 返回当前方言名称。
func (db *DB) Driver() string {
	return db.dialect.name
}

// Tasks 返回任务仓库。
func (db *DB) Tasks() *TaskRepository {
	return &TaskRepository{db: db}
}

// Templates 返回模板仓库。
func (db *DB) Templates() *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Users 返回用户仓库。
func (db *DB) Users() *UserRepository {
	return &UserRepository{db: db}
}

// withTx 在事务中执行 fn。fn 返回错误时回滚。
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.x.BeginTxx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "开启事务失败")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "提交事务失败")
	}
	return nil
}
