package task

import (
	"bytes"
	"encoding/json"
)

// Optional 携带一个值以及它是否出现在请求中。JSON null 视为未提供。
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some 构造一个已设置的 Optional。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value, o.Set = zero, false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Set = true
	return nil
}

// MarshalJSON 实现 json.Marshaler，未设置时输出 null。
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Flag 是按真值规则解析的完成标记：布尔值、非零数字与非空字符串均为真。
type Flag bool

// UnmarshalJSON 实现 json.Unmarshaler。
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(v)
	case float64:
		*f = v != 0
	case string:
		*f = v != ""
	default:
		*f = true
	}
	return nil
}

// Int 返回存储使用的 0/1 表示。
func (f Flag) Int() int {
	if f {
		return 1
	}
	return 0
}

// Patch 是部分更新请求，只有出现的字段会被写入。
type Patch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Completed   Optional[Flag]   `json:"completed"`
	Comments    Optional[string] `json:"comments"`
}

// UnmarshalJSON 实现 json.Unmarshaler。文本字段为 null 时保持原值，
// completed 为 null 时按假值处理，即出现即写入。
func (p *Patch) UnmarshalJSON(data []byte) error {
	type plain Patch
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["completed"]; ok && !decoded.Completed.Set &&
		bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		decoded.Completed = Some(Flag(false))
	}
	*p = Patch(decoded)
	return nil
}

// Empty 判断补丁是否不包含任何字段。
func (p Patch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set && !p.Comments.Set
}

// Apply 将补丁合并到任务上。
func (p Patch) Apply(t *Task) {
	if p.Title.Set {
		t.Title = cloneString(&p.Title.Value)
	}
	if p.Description.Set {
		t.Description = cloneString(&p.Description.Value)
	}
	if p.Completed.Set {
		t.Completed = p.Completed.Value.Int()
	}
	if p.Comments.Set {
		t.Comments = cloneString(&p.Comments.Value)
	}
}
