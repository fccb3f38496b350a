package migrations

import (
	"embed"
	"io/fs"
)

// Files 暴露所有 SQL 迁移文件，按方言分目录存放。
//
//go:embed sqlite/*.sql mysql/*.sql
var Files embed.FS

// Dialect 返回指定方言目录下的迁移文件系统。
func Dialect(name string) (fs.FS, error) {
	return fs.Sub(Files, name)
}
