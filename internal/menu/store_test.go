package menu_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"Restaurant/internal/menu"
	"Restaurant/internal/snapshot"
)

func openStore(t *testing.T, snap snapshot.Store) *menu.Store {
	t.Helper()

	s, err := menu.Open(context.Background(), snap, zap.NewNop())
	if err != nil {
		t.Fatalf("menu.Open: %v", err)
	}
	return s
}

func decodeDish(t *testing.T, raw string) menu.Dish {
	t.Helper()

	var d menu.Dish
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("decode dish: %v", err)
	}
	return d
}

func TestDish_DecodeKeepsFields(t *testing.T) {
	d := decodeDish(t, `{"id": 7, "name": "Burger", "price": 9.50, "tags": ["beef"]}`)

	if d.ID != "7" {
		t.Fatalf("id=%q want 7", d.ID)
	}
	if d.Available {
		t.Fatal("available should default to false")
	}
	if d.Fields["name"] != "Burger" {
		t.Fatalf("name=%v", d.Fields["name"])
	}
	if _, ok := d.Fields["id"]; ok {
		t.Fatal("id must not be duplicated into Fields")
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["price"] != 9.5 || back["id"] != "7" || back["available"] != false {
		t.Fatalf("round trip lost data: %s", raw)
	}
}

func TestDish_DecodeRejectsBadTypes(t *testing.T) {
	for _, raw := range []string{
		`{"id": true}`,
		`{"id": "1", "available": "yes"}`,
		`null`,
		`[]`,
	} {
		var d menu.Dish
		if err := json.Unmarshal([]byte(raw), &d); err == nil {
			t.Errorf("%s: expected error", raw)
		}
	}
}

func TestStore_UpsertRequiresID(t *testing.T) {
	s := openStore(t, snapshot.NewMemStore())

	_, err := s.Upsert(context.Background(), decodeDish(t, `{"name": "Soup"}`))
	if !errors.Is(err, menu.ErrMissingID) {
		t.Fatalf("err=%v want ErrMissingID", err)
	}
}

func TestStore_UpsertReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemStore())

	if _, err := s.Upsert(ctx, decodeDish(t, `{"id": "1", "name": "Burger", "spicy": true, "available": true}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, decodeDish(t, `{"id": "1", "name": "Cheeseburger"}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	d, ok, err := s.Get(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if d.Fields["name"] != "Cheeseburger" {
		t.Fatalf("name=%v", d.Fields["name"])
	}
	if _, ok := d.Fields["spicy"]; ok {
		t.Fatal("replace kept a field from the old record")
	}
	if d.Available {
		t.Fatal("replace kept old availability")
	}
}

func TestStore_ToggleTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemStore())

	if _, err := s.Upsert(ctx, decodeDish(t, `{"id": "1", "name": "Burger"}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	d, err := s.ToggleAvailability(ctx, "1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !d.Available {
		t.Fatal("absent availability should toggle to true")
	}

	d, err = s.ToggleAvailability(ctx, "1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if d.Available {
		t.Fatal("second toggle should restore false")
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemStore())

	if err := s.Remove(ctx, "nope"); !errors.Is(err, menu.ErrNotFound) {
		t.Fatalf("remove err=%v", err)
	}
	if _, err := s.ToggleAvailability(ctx, "nope"); !errors.Is(err, menu.ErrNotFound) {
		t.Fatalf("toggle err=%v", err)
	}
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	snap := snapshot.NewMemStore()
	s := openStore(t, snap)

	if _, err := s.Upsert(ctx, decodeDish(t, `{"id": "1", "name": "Burger"}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, decodeDish(t, `{"id": "2", "name": "Fries"}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.ToggleAvailability(ctx, "1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := s.Remove(ctx, "2"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reopened := openStore(t, snap)
	all, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("dishes=%d want 1", len(all))
	}
	if d := all["1"]; !d.Available || d.Fields["name"] != "Burger" {
		t.Fatalf("reloaded dish=%+v", d)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemStore())

	if _, err := s.Upsert(ctx, decodeDish(t, `{"id": "1", "extras": {"sauce": "bbq"}}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	d, _, _ := s.Get(ctx, "1")
	d.Fields["extras"].(map[string]any)["sauce"] = "mayo"

	again, _, _ := s.Get(ctx, "1")
	if got := again.Fields["extras"].(map[string]any)["sauce"]; got != "bbq" {
		t.Fatalf("stored dish mutated through a copy: sauce=%v", got)
	}
}

type failingSnapshots struct{ snapshot.Store }

func (failingSnapshots) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_SnapshotFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, failingSnapshots{snapshot.NewMemStore()})

	if _, err := s.Upsert(ctx, decodeDish(t, `{"id": "1"}`)); err == nil {
		t.Fatal("expected snapshot error")
	}
}
