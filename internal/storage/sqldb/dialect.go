package sqldb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	xerrors "taskdeck/internal/errors"
)

const (
	dialectSQLite = "sqlite"
	dialectMySQL  = "mysql"
)

// dialect 收拢两种引擎之间有差异的 SQL。
type dialect struct {
	name   string
	driver string
	// insertUser 在用户名已存在时不做任何修改。
	insertUser string
	// upsertTemplate 按标签插入或复用模板行。
	upsertTemplate string
	// upsertReturnsID 为真时通过 RETURNING 读取 ID，否则使用 LastInsertId。
	upsertReturnsID bool
}

var (
	sqliteDialect = dialect{
		name:            dialectSQLite,
		driver:          "sqlite3",
		insertUser:      `INSERT OR IGNORE INTO users (username, password) VALUES (?, ?)`,
		upsertTemplate:  `INSERT INTO templates (label) VALUES (?) ON CONFLICT(label) DO UPDATE SET label = excluded.label RETURNING id`,
		upsertReturnsID: true,
	}
	mysqlDialect = dialect{
		name:           dialectMySQL,
		driver:         "mysql",
		insertUser:     `INSERT IGNORE INTO users (username, password) VALUES (?, ?)`,
		upsertTemplate: `INSERT INTO templates (label) VALUES (?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
	}
)

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", dialectSQLite, "sqlite3":
		return sqliteDialect, nil
	case dialectMySQL:
		return mysqlDialect, nil
	default:
		return dialect{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("不支持的数据库驱动: %s", driver))
	}
}

// storageError 包装驱动错误，唯一约束冲突映射为 CONFLICT。
func storageError(err error, message string) error {
	if isDuplicate(err) {
		return xerrors.Wrap(xerrors.CodeConflict, err, message)
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message)
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
