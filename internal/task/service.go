package task

import (
	"context"
	"log/slog"

	xerrors "taskdeck/internal/errors"
	"taskdeck/internal/events"
	"taskdeck/pkg/logger"
)

// Service 负责任务的增删改查，并在变更成功后发布事件。
type Service struct {
	store     Store
	publisher events.Publisher
}

// NewService 构造任务服务。publisher 为空时不发布事件。
func NewService(store Store, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{store: store, publisher: publisher}
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	return nil
}

// List 返回符合过滤条件的任务列表。
func (s *Service) List(ctx context.Context, opts ...ListOption) ([]*Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, BuildListOptions(opts...))
}

// Get 返回单个任务。
func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Create 新建一个未完成的任务。
func (s *Service) Create(ctx context.Context, draft Draft) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	id, err := s.store.Create(ctx, draft)
	if err != nil {
		return 0, err
	}
	events.Emit(ctx, s.publisher, events.ForTask(events.TaskCreated, id))
	return id, nil
}

// CreateMany 在同一事务中批量创建任务，每个新任务发布一次创建事件。
func (s *Service) CreateMany(ctx context.Context, drafts []Draft) ([]int64, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.store.CreateMany(ctx, drafts)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		events.Emit(ctx, s.publisher, events.ForTask(events.TaskCreated, id))
	}
	return ids, nil
}

// Update 按补丁更新任务。
func (s *Service) Update(ctx context.Context, id int64, patch Patch) error {
	if err := s.ready(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	if err := s.store.Update(ctx, id, patch); err != nil {
		return err
	}
	events.Emit(ctx, s.publisher, events.ForTask(events.TaskUpdated, id))
	return nil
}

// Delete 删除任务。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	events.Emit(ctx, s.publisher, events.ForTask(events.TaskDeleted, id))
	return nil
}

// Reorder 保存手动排序结果。
func (s *Service) Reorder(ctx context.Context, positions []Position) error {
	if err := s.ready(); err != nil {
		return err
	}
	if positions == nil {
		return xerrors.New(CodeTaskValidation, "order を指定してください")
	}
	if err := s.store.Reorder(ctx, positions); err != nil {
		return err
	}
	events.Emit(ctx, s.publisher, events.ForTask(events.TaskReordered, 0).WithCount(len(positions)))
	logger.L().Debug("任务排序已更新", slog.Int("count", len(positions)))
	return nil
}

// Stats 返回任务统计信息。
func (s *Service) Stats(ctx context.Context) (TaskStats, error) {
	if err := s.ready(); err != nil {
		return TaskStats{}, err
	}
	return s.store.Stats(ctx)
}
