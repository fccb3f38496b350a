package sqldb

import (
	"context"
	"database/sql"
	stdErrors "errors"

	"github.com/jmoiron/sqlx"

	"taskdeck/internal/task"
	"taskdeck/internal/template"
)

// TemplateRepository 实现 template.Store。
type TemplateRepository struct {
	db *DB
}

var _ template.Store = (*TemplateRepository)(nil)

// List 实现 template.Store。
func (r *TemplateRepository) List(ctx context.Context) ([]*template.Template, error) {
	templates := []*template.Template{}
	if err := r.db.x.SelectContext(ctx, &templates, `SELECT id, label FROM templates ORDER BY id DESC`); err != nil {
		return nil, storageError(err, "查询模板列表失败")
	}
	return templates, nil
}

// Get 实现 template.Store。
func (r *TemplateRepository) Get(ctx context.Context, id int64) (*template.Detail, error) {
	detail := &template.Detail{Tasks: []template.Item{}}
	if err := r.db.x.GetContext(ctx, &detail.Template, `SELECT id, label FROM templates WHERE id = ?`, id); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, template.ErrTemplateNotFound
		}
		return nil, storageError(err, "查询模板失败")
	}
	if err := r.db.x.SelectContext(ctx, &detail.Tasks,
		`SELECT id, title, description FROM template_tasks WHERE template_id = ? ORDER BY id ASC`, id); err != nil {
		return nil, storageError(err, "查询模板条目失败")
	}
	return detail, nil
}

// Save 实现 template.Store。标签的插入或复用、旧条目删除与新条目写入处于同一事务。
func (r *TemplateRepository) Save(ctx context.Context, label *string, items []task.Draft) (int64, error) {
	var id int64
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = r.upsertLabel(ctx, tx, label)
		if err != nil {
			return err
		}
		return replaceItems(ctx, tx, id, items)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *TemplateRepository) upsertLabel(ctx context.Context, tx *sqlx.Tx, label *string) (int64, error) {
	if r.db.dialect.upsertReturnsID {
		var id int64
		if err := tx.QueryRowxContext(ctx, r.db.dialect.upsertTemplate, label).Scan(&id); err != nil {
			return 0, storageError(err, "保存模板失败")
		}
		return id, nil
	}
	res, err := tx.ExecContext(ctx, r.db.dialect.upsertTemplate, label)
	if err != nil {
		return 0, storageError(err, "保存模板失败")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageError(err, "读取模板 ID 失败")
	}
	return id, nil
}

// ReplaceItems 实现 template.Store。
func (r *TemplateRepository) ReplaceItems(ctx context.Context, id int64, items []task.Draft) error {
	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		var found int64
		if err := tx.GetContext(ctx, &found, `SELECT id FROM templates WHERE id = ?`, id); err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return template.ErrTemplateNotFound
			}
			return storageError(err, "查询模板失败")
		}
		return replaceItems(ctx, tx, id, items)
	})
}

func replaceItems(ctx context.Context, tx *sqlx.Tx, id int64, items []task.Draft) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM template_tasks WHERE template_id = ?`, id); err != nil {
		return storageError(err, "清理模板条目失败")
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_tasks (template_id, title, description) VALUES (?, ?, ?)`,
			id, item.Title, item.Description); err != nil {
			return storageError(err, "写入模板条目失败")
		}
	}
	return nil
}

// Delete 实现 template.Store。条目通过外键级联删除。
func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.x.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id); err != nil {
		return storageError(err, "删除模板失败")
	}
	return nil
}

// Items 实现 template.Store。
func (r *TemplateRepository) Items(ctx context.Context, id int64) ([]task.Draft, error) {
	drafts := []task.Draft{}
	if err := r.db.x.SelectContext(ctx, &drafts,
		`SELECT title, description FROM template_tasks WHERE template_id = ? ORDER BY id ASC`, id); err != nil {
		return nil, storageError(err, "查询模板条目失败")
	}
	return drafts, nil
}
