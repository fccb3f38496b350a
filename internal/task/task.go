package task

import (
	xerrors "taskdeck/internal/errors"
)

// Task 对应 tasks 表中的一行。标题、描述与备注允许为空，序列化为 JSON null。
type Task struct {
	ID          int64   `json:"id" db:"id"`
	Title       *string `json:"title" db:"title"`
	Description *string `json:"description" db:"description"`
	Completed   int     `json:"completed" db:"completed"`
	Comments    *string `json:"comments" db:"comments"`
	SortIndex   *int64  `json:"sort_index" db:"sort_index"`
}

// Draft 是创建任务时的输入，模板展开时也使用它。
type Draft struct {
	Title       *string `json:"title" db:"title"`
	Description *string `json:"description" db:"description"`
}

// Position 描述手动排序中单个任务的位置。
type Position struct {
	ID    int64 `json:"id"`
	Order int64 `json:"order"`
}

const (
	CodeTaskNotFound   xerrors.Code = "TASK_NOT_FOUND"
	CodeTaskValidation xerrors.Code = "TASK_VALIDATION_FAILED"
)

// ErrTaskNotFound 表示指定的任务不存在。
var ErrTaskNotFound = xerrors.New(CodeTaskNotFound, "タスクが見つかりません")

func init() {
	xerrors.RegisterKind(CodeTaskNotFound, xerrors.CodeNotFound, xerrors.Attributes{
		Message:  "タスクが見つかりません",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.RegisterKind(CodeTaskValidation, xerrors.CodeInvalidArgument, xerrors.Attributes{
		Message:  "入力内容が正しくありません",
		Severity: xerrors.SeverityInfo,
	})
}

func cloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Title = cloneString(t.Title)
	clone.Description = cloneString(t.Description)
	clone.Comments = cloneString(t.Comments)
	if t.SortIndex != nil {
		idx := *t.SortIndex
		clone.SortIndex = &idx
	}
	return &clone
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
