package template

import (
	"context"

	xerrors "taskdeck/internal/errors"
	"taskdeck/internal/task"
)

// Template 对应 templates 表中的一行。
type Template struct {
	ID    int64   `json:"id" db:"id"`
	Label *string `json:"label" db:"label"`
}

// Item 是模板中的一个任务蓝本，按插入顺序排列。
type Item struct {
	ID          int64   `json:"id" db:"id"`
	Title       *string `json:"title" db:"title"`
	Description *string `json:"description" db:"description"`
}

// Detail 是模板及其全部条目，序列化时条目位于 tasks 字段。
type Detail struct {
	Template
	Tasks []Item `json:"tasks"`
}

// Store 抽象了模板的持久化接口。
type Store interface {
	List(ctx context.Context) ([]*Template, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	// Save 按标签创建或覆盖模板，并替换其全部条目。
	Save(ctx context.Context, label *string, items []task.Draft) (int64, error)
	// ReplaceItems 替换已有模板的条目，模板不存在时返回 ErrTemplateNotFound。
	ReplaceItems(ctx context.Context, id int64, items []task.Draft) error
	Delete(ctx context.Context, id int64) error
	// Items 返回模板条目的标题与描述，模板不存在时返回空列表。
	Items(ctx context.Context, id int64) ([]task.Draft, error)
}

const CodeTemplateNotFound xerrors.Code = "TEMPLATE_NOT_FOUND"

// ErrTemplateNotFound 表示指定的模板不存在。
var ErrTemplateNotFound = xerrors.New(CodeTemplateNotFound, "テンプレートが存在しません")

func init() {
	xerrors.RegisterKind(CodeTemplateNotFound, xerrors.CodeNotFound, xerrors.Attributes{
		Message:  "テンプレートが存在しません",
		Severity: xerrors.SeverityInfo,
	})
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
