package sqldb

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"taskdeck/internal/task"
)

const taskColumns = `id, title, description, completed, comments, sort_index`

// TaskRepository 实现 task.Store。
type TaskRepository struct {
	db *DB
}

var _ task.Store = (*TaskRepository)(nil)

// List 实现 task.Store。
func (r *TaskRepository) List(ctx context.Context, opts task.ListOptions) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if opts.Completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, boolToInt(*opts.Completed))
	}
	if opts.Order == task.SortByManual {
		query += ` ORDER BY sort_index IS NULL, sort_index ASC, id DESC`
	} else {
		query += ` ORDER BY id DESC`
	}

	tasks := []*task.Task{}
	if err := r.db.x.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, storageError(err, "查询任务列表失败")
	}
	return tasks, nil
}

// Get 实现 task.Store。
func (r *TaskRepository) Get(ctx context.Context, id int64) (*task.Task, error) {
	var t task.Task
	if err := r.db.x.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, task.ErrTaskNotFound
		}
		return nil, storageError(err, "查询任务失败")
	}
	return &t, nil
}

// Create 实现 task.Store。
func (r *TaskRepository) Create(ctx context.Context, draft task.Draft) (int64, error) {
	id, err := insertTask(ctx, r.db.x, draft)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateMany 实现 task.Store，所有任务在同一事务内写入。
func (r *TaskRepository) CreateMany(ctx context.Context, drafts []task.Draft) ([]int64, error) {
	ids := make([]int64, 0, len(drafts))
	if len(drafts) == 0 {
		return ids, nil
	}
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, draft := range drafts {
			id, err := insertTask(ctx, tx, draft)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func insertTask(ctx context.Context, exec sqlx.ExecerContext, draft task.Draft) (int64, error) {
	res, err := exec.ExecContext(ctx, `INSERT INTO tasks (title, description, completed) VALUES (?, ?, 0)`, draft.Title, draft.Description)
	if err != nil {
		return 0, storageError(err, "写入任务失败")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageError(err, "读取任务 ID 失败")
	}
	return id, nil
}

// Update 实现 task.Store。只有补丁中出现的字段会进入 SET 子句。
func (r *TaskRepository) Update(ctx context.Context, id int64, patch task.Patch) error {
	sets, args := buildTaskUpdate(patch)
	if len(sets) == 0 {
		return nil
	}
	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if _, err := r.db.x.ExecContext(ctx, query, args...); err != nil {
		return storageError(err, "更新任务失败")
	}
	return nil
}

func buildTaskUpdate(patch task.Patch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	if patch.Title.Set {
		sets = append(sets, "title = ?")
		args = append(args, patch.Title.Value)
	}
	if patch.Description.Set {
		sets = append(sets, "description = ?")
		args = append(args, patch.Description.Value)
	}
	if patch.Completed.Set {
		sets = append(sets, "completed = ?")
		args = append(args, patch.Completed.Value.Int())
	}
	if patch.Comments.Set {
		sets = append(sets, "comments = ?")
		args = append(args, patch.Comments.Value)
	}
	return sets, args
}

// Delete 实现 task.Store。
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.x.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return storageError(err, "删除任务失败")
	}
	return nil
}

// Reorder 实现 task.Store。
func (r *TaskRepository) Reorder(ctx context.Context, positions []task.Position) error {
	if len(positions) == 0 {
		return nil
	}
	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range positions {
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET sort_index = ? WHERE id = ?`, p.Order, p.ID); err != nil {
				return storageError(err, "更新任务排序失败")
			}
		}
		return nil
	})
}

// Stats 实现 task.Store。
func (r *TaskRepository) Stats(ctx context.Context) (task.TaskStats, error) {
	var stats task.TaskStats
	const query = `SELECT
        COUNT(*) AS total,
        COALESCE(SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END), 0) AS completed
        FROM tasks`
	if err := r.db.x.GetContext(ctx, &stats, query); err != nil {
		return task.TaskStats{}, storageError(err, "查询任务统计失败")
	}
	stats.Open = stats.Total - stats.Completed
	return stats, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
