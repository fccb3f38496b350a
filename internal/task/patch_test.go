package task

import (
	"encoding/json"
	"testing"
)

func TestPatchDecodesPresenceAndNull(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"title":"T","description":null}`), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Title.Set || p.Title.Value != "T" {
		t.Fatalf("title not set: %+v", p.Title)
	}
	if p.Description.Set || p.Completed.Set || p.Comments.Set {
		t.Fatalf("absent or null fields must stay unset: %+v", p)
	}

	var empty Patch
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if !empty.Empty() {
		t.Fatalf("expected empty patch")
	}
}

func TestFlagTruthiness(t *testing.T) {
	cases := map[string]int{
		`true`:  1,
		`false`: 0,
		`1`:     1,
		`0`:     0,
		`2`:     1,
		`"yes"`: 1,
		`""`:    0,
	}
	for raw, want := range cases {
		var p Patch
		if err := json.Unmarshal([]byte(`{"completed":`+raw+`}`), &p); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if !p.Completed.Set {
			t.Fatalf("%s: completed should be set", raw)
		}
		if got := p.Completed.Value.Int(); got != want {
			t.Fatalf("%s: want %d got %d", raw, want, got)
		}
	}
}

func TestPatchApply(t *testing.T) {
	task := &Task{ID: 1, Title: strPtr("old"), Comments: strPtr("keep")}
	Patch{Title: Some("new"), Completed: Some(Flag(true))}.Apply(task)
	if *task.Title != "new" || task.Completed != 1 || *task.Comments != "keep" {
		t.Fatalf("unexpected task after apply: %+v", task)
	}
}

func TestPatchNullCompletedClearsFlag(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"completed":null,"comments":null}`), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Completed.Set || p.Completed.Value.Int() != 0 {
		t.Fatalf("null completed should be written as 0: %+v", p.Completed)
	}
	if p.Comments.Set {
		t.Fatalf("null comments must keep the stored value")
	}

	task := &Task{ID: 1, Completed: 1, Comments: strPtr("keep")}
	p.Apply(task)
	if task.Completed != 0 || *task.Comments != "keep" {
		t.Fatalf("unexpected task after apply: %+v", task)
	}

	var absent Patch
	if err := json.Unmarshal([]byte(`{"title":"x"}`), &absent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if absent.Completed.Set {
		t.Fatalf("absent completed must stay unset")
	}
	if err := json.Unmarshal([]byte(`[1]`), &absent); err == nil {
		t.Fatalf("expected error for non-object patch")
	}
}
