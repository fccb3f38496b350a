package task

import "context"

// Store 抽象了任务的持久化接口。
type Store interface {
	List(ctx context.Context, opts ListOptions) ([]*Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, draft Draft) (int64, error)
	// CreateMany 在一个事务内批量创建任务，返回新任务的 ID。
	CreateMany(ctx context.Context, drafts []Draft) ([]int64, error)
	// Update 不检查任务是否存在，空补丁不产生任何写入。
	Update(ctx context.Context, id int64, patch Patch) error
	Delete(ctx context.Context, id int64) error
	// Reorder 在一个事务内写入排序位置，忽略不存在的 ID。
	Reorder(ctx context.Context, positions []Position) error
	Stats(ctx context.Context) (TaskStats, error)
}
