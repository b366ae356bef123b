package tasks

import (
	"encoding/json"
	"testing"
)

func TestTaskJSONOmitsZeroID(t *testing.T) {
	data, err := json.Marshal(Task{Title: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"title":"new","completed":false}` {
		t.Errorf("got %s", data)
	}

	data, _ = json.Marshal(Task{ID: 3, Title: "saved", Completed: true})
	if string(data) != `{"id":3,"title":"saved","completed":true}` {
		t.Errorf("got %s", data)
	}
}

func TestPatchApply(t *testing.T) {
	base := Task{ID: 1, Title: "a", Completed: false}

	if got := SetCompleted(true).Apply(base); got.Title != "a" || !got.Completed {
		t.Errorf("SetCompleted: got %+v", got)
	}
	if got := SetTitle("b").Apply(base); got.Title != "b" || got.Completed {
		t.Errorf("SetTitle: got %+v", got)
	}
	if got := (Patch{}).Apply(base); got != base {
		t.Errorf("empty patch: got %+v", got)
	}
}

func TestPatchJSONDistinguishesAbsentFields(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"completed":false}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Title != nil {
		t.Error("expected nil title")
	}
	if p.Completed == nil || *p.Completed {
		t.Errorf("expected completed=false, got %v", p.Completed)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := Validate(Task{Title: " "})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "validation failed: Title can't be blank" {
		t.Errorf("got %q", err.Error())
	}
	if Validate(Task{Title: "ok"}) != nil {
		t.Error("expected valid task")
	}
}
