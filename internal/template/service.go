package template

import (
	"context"
	"log/slog"

	xerrors "taskdeck/internal/errors"
	"taskdeck/internal/events"
	"taskdeck/internal/task"
	"taskdeck/pkg/logger"
)

// TaskCreator 是模板展开时写入任务所需的最小能力。
type TaskCreator interface {
	CreateMany(ctx context.Context, drafts []task.Draft) ([]int64, error)
}

var _ TaskCreator = (*task.Service)(nil)

// Service 负责模板的维护与应用。
type Service struct {
	store     Store
	tasks     TaskCreator
	publisher events.Publisher
}

// NewService 构造模板服务。publisher 为空时不发布事件。
func NewService(store Store, tasks TaskCreator, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{store: store, tasks: tasks, publisher: publisher}
}

func (s *Service) ready() error {
	if s == nil || s.store == nil || s.tasks == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "模板服务未初始化")
	}
	return nil
}

// List 返回全部模板，按 ID 倒序。
func (s *Service) List(ctx context.Context) ([]*Template, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

// Get 返回模板及其条目。
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Save 按标签创建或覆盖模板。
func (s *Service) Save(ctx context.Context, label *string, items []task.Draft) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	id, err := s.store.Save(ctx, label, items)
	if err != nil {
		return 0, err
	}
	events.Emit(ctx, s.publisher, events.ForTemplate(events.TemplateSaved, id).WithCount(len(items)))
	return id, nil
}

// ReplaceItems 替换模板条目。
func (s *Service) ReplaceItems(ctx context.Context, id int64, items []task.Draft) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.ReplaceItems(ctx, id, items); err != nil {
		return err
	}
	events.Emit(ctx, s.publisher, events.ForTemplate(events.TemplateUpdated, id).WithCount(len(items)))
	return nil
}

// Delete 删除模板及其条目。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	events.Emit(ctx, s.publisher, events.ForTemplate(events.TemplateDeleted, id))
	return nil
}

// Apply 为模板的每个条目创建一个未完成任务，模板本身保持不变。
// 模板不存在或没有条目时不创建任何任务。
func (s *Service) Apply(ctx context.Context, id int64) ([]int64, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	drafts, err := s.store.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		logger.L().Debug("模板没有可展开的条目", slog.Int64("template_id", id))
		return []int64{}, nil
	}
	ids, err := s.tasks.CreateMany(ctx, drafts)
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.publisher, events.ForTemplate(events.TemplateApplied, id).WithCount(len(ids)))
	logger.Audit().Info("模板已应用", slog.Int64("template_id", id), slog.Int("created", len(ids)))
	return ids, nil
}
