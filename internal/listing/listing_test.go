package listing

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/alfredjeanlab/flowview/internal/model"
)

type recordingSender struct {
	open bool
	sent []model.PageRequest
}

func (s *recordingSender) Send(v any) bool {
	if !s.open {
		return false
	}
	s.sent = append(s.sent, v.(model.PageRequest))
	return true
}

func page(t *testing.T, key string, items []model.Task, current, total, size int) model.Envelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		key:    items,
		"page": model.Page{Current: current, Total: total, Size: size},
	})
	if err != nil {
		t.Fatal(err)
	}
	return model.Envelope{Code: model.CodeSuccess, Data: data}
}

func TestController_RequestDroppedWhileClosed(t *testing.T) {
	s := &recordingSender{}
	c := NewController[model.Task](s, 0, nil)
	before := c.State()

	if c.RequestPage(2, 10) {
		t.Fatal("RequestPage reported success on a closed channel")
	}
	if len(s.sent) != 0 {
		t.Fatalf("sent = %v", s.sent)
	}
	if !reflect.DeepEqual(c.State(), before) {
		t.Errorf("state changed: %+v -> %+v", before, c.State())
	}

	// Once the channel opens, a resync delivers the request that was dropped.
	s.open = true
	if !c.Resync() {
		t.Fatal("Resync failed on an open channel")
	}
	if want := []model.PageRequest{{Page: 2, Size: 10}}; !reflect.DeepEqual(s.sent, want) {
		t.Errorf("sent = %v, want %v", s.sent, want)
	}
}

func TestController_HandleReplacesState(t *testing.T) {
	s := &recordingSender{open: true}
	c := NewController[model.Task](s, 15, nil)

	var notified int
	c.OnChange(func(State[model.Task]) { notified++ })

	if err := c.Handle(page(t, "tasks", []model.Task{{Name: "a"}, {Name: "b"}}, 1, 3, 2)); err != nil {
		t.Fatal(err)
	}
	st := c.State()
	if st.CurrentPage != 1 || st.TotalPages != 3 || st.PageSize != 2 || len(st.Items) != 2 {
		t.Fatalf("state = %+v", st)
	}
	if !st.PrevDisabled() || st.NextDisabled() {
		t.Errorf("prev/next disabled = %v/%v, want true/false", st.PrevDisabled(), st.NextDisabled())
	}

	if err := c.Handle(page(t, "items", []model.Task{{Name: "z"}}, 3, 3, 2)); err != nil {
		t.Fatal(err)
	}
	st = c.State()
	if len(st.Items) != 1 || st.Items[0].Name != "z" {
		t.Errorf("items = %+v, want only z", st.Items)
	}
	if st.PrevDisabled() || !st.NextDisabled() {
		t.Errorf("prev/next disabled = %v/%v, want false/true", st.PrevDisabled(), st.NextDisabled())
	}
	if notified != 2 {
		t.Errorf("notified = %d, want 2", notified)
	}
}

func TestController_NullDataEmptiesList(t *testing.T) {
	c := NewController[model.Task](&recordingSender{open: true}, 15, nil)
	_ = c.Handle(page(t, "tasks", []model.Task{{Name: "a"}}, 2, 4, 15))

	if err := c.Handle(model.Envelope{Code: model.CodeNoData, Data: json.RawMessage("null")}); err != nil {
		t.Fatal(err)
	}
	st := c.State()
	if len(st.Items) != 0 || st.TotalPages != 1 {
		t.Errorf("state = %+v, want empty single page", st)
	}
}

func TestController_NavigationRespectsBounds(t *testing.T) {
	s := &recordingSender{open: true}
	c := NewController[model.Task](s, 15, nil)
	_ = c.Handle(page(t, "tasks", []model.Task{{Name: "a"}}, 1, 2, 15))

	if c.Prev() {
		t.Error("Prev on first page sent a request")
	}
	if !c.Next() {
		t.Error("Next on page 1 of 2 did not send")
	}
	_ = c.Handle(page(t, "tasks", []model.Task{{Name: "b"}}, 2, 2, 15))
	if c.Next() {
		t.Error("Next on last page sent a request")
	}
	if !c.Prev() {
		t.Error("Prev on page 2 did not send")
	}
	if !c.SetPageSize(50) {
		t.Error("SetPageSize did not send")
	}

	want := []model.PageRequest{{Page: 2, Size: 15}, {Page: 1, Size: 15}, {Page: 1, Size: 50}}
	if !reflect.DeepEqual(s.sent, want) {
		t.Errorf("sent = %v, want %v", s.sent, want)
	}
}

func TestController_PipelinesKey(t *testing.T) {
	c := NewController[model.Pipeline](&recordingSender{open: true}, 15, nil)
	env := model.Envelope{Data: json.RawMessage(`{"pipelines":[{"name":"p1","tplType":"jinja2"}],"page":{"current":1,"total":1,"size":15}}`)}
	if err := c.Handle(env); err != nil {
		t.Fatal(err)
	}
	st := c.State()
	if len(st.Items) != 1 || st.Items[0].TplType != "jinja2" {
		t.Errorf("items = %+v", st.Items)
	}
}

func TestController_BadPayload(t *testing.T) {
	c := NewController[model.Task](&recordingSender{open: true}, 15, nil)
	_ = c.Handle(page(t, "tasks", []model.Task{{Name: "a"}}, 1, 1, 15))
	before := c.State()

	err := c.Handle(model.Envelope{Data: json.RawMessage(`[1,2,3]`)})
	var pe *model.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
	if !reflect.DeepEqual(c.State(), before) {
		t.Error("bad payload changed state")
	}
}
