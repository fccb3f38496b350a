package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	xerrors "taskdeck/internal/errors"
	"taskdeck/internal/observability/metrics"
	"taskdeck/pkg/logger"
)

// Type 标识事件种类。
type Type string

const (
	TaskCreated     Type = "task.created"
	TaskUpdated     Type = "task.updated"
	TaskDeleted     Type = "task.deleted"
	TaskReordered   Type = "task.reordered"
	TemplateSaved   Type = "template.saved"
	TemplateUpdated Type = "template.updated"
	TemplateDeleted Type = "template.deleted"
	TemplateApplied Type = "template.applied"
)

const (
	resourceTask     = "task"
	resourceTemplate = "template"
)

// Event 描述一次已经提交的数据变更。
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Resource   string    `json:"resource"`
	ResourceID int64     `json:"resource_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ForTask 构造任务相关事件。
func ForTask(typ Type, id int64) Event {
	return Event{Type: typ, Resource: resourceTask, ResourceID: id}
}

// ForTemplate 构造模板相关事件。
func ForTemplate(typ Type, id int64) Event {
	return Event{Type: typ, Resource: resourceTemplate, ResourceID: id}
}

// WithCount 记录事件影响的记录数量。
func (e Event) WithCount(n int) Event {
	e.Count = n
	return e
}

// Publisher 负责投递事件。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Emit 补全事件 ID 与时间后投递。失败只记录日志，不影响调用方。
func Emit(ctx context.Context, publisher Publisher, evt Event) {
	if publisher == nil {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	err := publisher.Publish(ctx, evt)
	metrics.ObserveEvent(string(evt.Type), err)
	if err != nil {
		wrapped := xerrors.Wrap(xerrors.CodePublishFailure, err, "发布变更事件失败")
		logger.Named("events").Warn("事件发布失败",
			slog.String("event_id", evt.ID),
			slog.String("type", string(evt.Type)),
			slog.Int64("resource_id", evt.ResourceID),
			slog.String("code", string(wrapped.Code())),
			slog.Any("error", wrapped),
		)
	}
}
