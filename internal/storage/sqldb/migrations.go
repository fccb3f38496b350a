package sqldb

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"taskdeck/deploy/migrations"
	"taskdeck/internal/auth"
	xerrors "taskdeck/internal/errors"
	"taskdeck/pkg/logger"
)

type migrationFile struct {
	version    string
	name       string
	statements []string
}

// Migrate 应用尚未执行的迁移并确保演示用户存在。可以重复执行。
func (db *DB) Migrate(ctx context.Context, seed auth.Seed) error {
	fsys, err := migrations.Dialect(db.dialect.name)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInitializationFailure, err, "读取迁移目录失败")
	}
	if err := db.runMigrations(ctx, fsys); err != nil {
		return err
	}
	if strings.TrimSpace(seed.Username) == "" {
		return nil
	}
	return db.Users().EnsureUser(ctx, seed)
}

func (db *DB) runMigrations(ctx context.Context, fsys fs.FS) error {
	if _, err := db.x.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`); err != nil {
		return xerrors.Wrap(xerrors.CodeInitializationFailure, err, "创建 schema_migrations 表失败")
	}

	applied, err := db.loadAppliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := loadMigrationFiles(fsys)
	if err != nil {
		return err
	}

	log := logger.Named("migrations")
	for _, migration := range files {
		if _, ok := applied[migration.version]; ok {
			continue
		}
		if err := db.applyMigration(ctx, migration); err != nil {
			return err
		}
		log.Info("迁移已应用", slog.String("version", migration.version), slog.String("file", migration.name))
	}
	return nil
}

func (db *DB) loadAppliedVersions(ctx context.Context) (map[string]struct{}, error) {
	var versions []string
	if err := db.x.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "查询 schema_migrations 失败")
	}
	applied := make(map[string]struct{}, len(versions))
	for _, version := range versions {
		applied[version] = struct{}{}
	}
	return applied, nil
}

func (db *DB) applyMigration(ctx context.Context, migration migrationFile) error {
	tx, err := db.x.BeginTxx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInitializationFailure, err, "开启迁移事务失败")
	}
	defer tx.Rollback()

	for _, stmt := range migration.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return xerrors.Wrap(xerrors.CodeInitializationFailure, err, fmt.Sprintf("执行迁移 %s 失败", migration.name),
				xerrors.WithRetryable(false), xerrors.WithMetadata("migration", migration.name))
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, migration.version, time.Now().Unix()); err != nil {
		return xerrors.Wrap(xerrors.CodeInitializationFailure, err, "记录迁移版本失败")
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Wrap(xerrors.CodeInitializationFailure, err, "提交迁移事务失败")
	}
	return nil
}

func loadMigrationFiles(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("读取迁移目录失败: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", name, err)
		}
		statements := splitSQLStatements(string(content))
		if len(statements) == 0 {
			continue
		}
		files = append(files, migrationFile{
			version:    parseMigrationVersion(name),
			name:       name,
			statements: statements,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].version == files[j].version {
			return files[i].name < files[j].name
		}
		return files[i].version < files[j].version
	})
	return files, nil
}

func splitSQLStatements(content string) []string {
	var statements []string
	for _, stmt := range strings.Split(content, ";") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		statements = append(statements, trimmed)
	}
	return statements
}

func parseMigrationVersion(name string) string {
	if idx := strings.IndexRune(name, '_'); idx > 0 {
		return name[:idx]
	}
	if dot := strings.IndexRune(name, '.'); dot > 0 {
		return name[:dot]
	}
	return name
}
