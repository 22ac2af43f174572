package restaurant_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Restaurant/internal/menu"
	"Restaurant/internal/order"
	"Restaurant/internal/restaurant"
	"Restaurant/internal/snapshot"
	"Restaurant/pkg/kit"
)

type testEnv struct {
	ts   *httptest.Server
	snap snapshot.Store
}

func newEnv(t *testing.T, snap snapshot.Store, deps restaurant.HTTPDeps) testEnv {
	t.Helper()
	ctx := context.Background()

	m, err := menu.Open(ctx, snap, zap.NewNop())
	if err != nil {
		t.Fatalf("menu.Open: %v", err)
	}
	e, err := order.Open(ctx, order.Deps{Menu: m, Snapshots: snap, Log: zap.NewNop()})
	if err != nil {
		t.Fatalf("order.Open: %v", err)
	}

	deps.Log = zap.NewNop()
	deps.Service = "restaurant"

	h := restaurant.NewHandler(&restaurant.App{Menu: m, Orders: e, Log: zap.NewNop()}, deps)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return testEnv{ts: ts, snap: snap}
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func expect(t *testing.T, resp *http.Response, raw []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d body=%s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, raw)
	}
}

type orderBody struct {
	Message string `json:"message"`
	Order   struct {
		ID     int              `json:"order_id"`
		Status string           `json:"status"`
		Items  []map[string]any `json:"items"`
	} `json:"order"`
}

func TestAPI_OrderLifecycle(t *testing.T) {
	env := newEnv(t, snapshot.NewMemStore(), restaurant.HTTPDeps{})
	base := env.ts.URL

	resp, raw := doJSON(t, http.MethodPost, base+"/menu", map[string]any{"id": "1", "name": "Burger", "available": true})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPost, base+"/order", map[string]any{
		"customer_name": "Alice",
		"dish_ids":      []string{"1"},
	})
	expect(t, resp, raw, http.StatusOK)

	var placed orderBody
	if err := json.Unmarshal(raw, &placed); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	if placed.Order.ID != 1 || placed.Order.Status != "received" {
		t.Fatalf("order=%+v", placed.Order)
	}
	if len(placed.Order.Items) != 1 || placed.Order.Items[0]["name"] != "Burger" {
		t.Fatalf("items=%v", placed.Order.Items)
	}

	resp, raw = doJSON(t, http.MethodPut, base+"/order/1", map[string]any{"status": "delivered"})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodDelete, base+"/order/1", nil)
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodDelete, base+"/order/1", nil)
	expect(t, resp, raw, http.StatusNotFound)
}

func TestAPI_PlaceRejections(t *testing.T) {
	env := newEnv(t, snapshot.NewMemStore(), restaurant.HTTPDeps{})
	base := env.ts.URL

	resp, raw := doJSON(t, http.MethodPost, base+"/menu", map[string]any{"id": 2, "name": "Salad"})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPost, base+"/order", map[string]any{"customer_name": "Bob", "dish_ids": []int{2}})
	expect(t, resp, raw, http.StatusBadRequest)
	if !strings.Contains(string(raw), "Dish with ID 2 is not available") {
		t.Fatalf("body=%s", raw)
	}

	resp, raw = doJSON(t, http.MethodPost, base+"/order", map[string]any{"customer_name": "Bob", "dish_ids": []string{"7"}})
	expect(t, resp, raw, http.StatusBadRequest)
	if !strings.Contains(string(raw), "Dish with ID 7 does not exist") {
		t.Fatalf("body=%s", raw)
	}

	resp, raw = doJSON(t, http.MethodPost, base+"/order", `{"customer_name": `)
	expect(t, resp, raw, http.StatusBadRequest)

	resp, raw = doJSON(t, http.MethodGet, base+"/order", nil)
	expect(t, resp, raw, http.StatusOK)
	var list struct {
		Order map[string]any `json:"order"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Order) != 0 {
		t.Fatalf("rejected placements created orders: %s", raw)
	}
}

func TestAPI_Menu(t *testing.T) {
	env := newEnv(t, snapshot.NewMemStore(), restaurant.HTTPDeps{})
	base := env.ts.URL

	resp, raw := doJSON(t, http.MethodPost, base+"/menu", map[string]any{"name": "No id"})
	expect(t, resp, raw, http.StatusBadRequest)

	resp, raw = doJSON(t, http.MethodPost, base+"/menu", map[string]any{"id": "1", "name": "Burger"})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPut, base+"/menu/1", nil)
	expect(t, resp, raw, http.StatusOK)
	var toggled struct {
		Dish map[string]any `json:"dish"`
	}
	if err := json.Unmarshal(raw, &toggled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if toggled.Dish["available"] != true {
		t.Fatalf("dish=%v", toggled.Dish)
	}

	resp, raw = doJSON(t, http.MethodPut, base+"/menu/404", nil)
	expect(t, resp, raw, http.StatusNotFound)

	resp, raw = doJSON(t, http.MethodDelete, base+"/menu/1", nil)
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodDelete, base+"/menu/1", nil)
	expect(t, resp, raw, http.StatusNotFound)
}

// The two status endpoints accept different sets: only PUT /order/{id} may
// move an order back to received.
func TestAPI_StatusEndpointsDiffer(t *testing.T) {
	env := newEnv(t, snapshot.NewMemStore(), restaurant.HTTPDeps{})
	base := env.ts.URL

	doJSON(t, http.MethodPost, base+"/menu", map[string]any{"id": "1", "available": true})
	resp, raw := doJSON(t, http.MethodPost, base+"/order", map[string]any{"customer_name": "Alice", "dish_ids": []string{"1"}})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPut, base+"/order", map[string]any{"order_id": 1, "status": "preparing"})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPut, base+"/order", map[string]any{"order_id": "1", "status": "received"})
	expect(t, resp, raw, http.StatusBadRequest)

	resp, raw = doJSON(t, http.MethodPut, base+"/order/1", map[string]any{"status": "received"})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPut, base+"/order/1", map[string]any{"status": "eaten"})
	expect(t, resp, raw, http.StatusBadRequest)

	resp, raw = doJSON(t, http.MethodPut, base+"/order", map[string]any{"order_id": 9, "status": "delivered"})
	expect(t, resp, raw, http.StatusNotFound)

	resp, raw = doJSON(t, http.MethodPut, base+"/order/abc", map[string]any{"status": "delivered"})
	expect(t, resp, raw, http.StatusNotFound)

	resp, raw = doJSON(t, http.MethodDelete, base+"/order/1", nil)
	expect(t, resp, raw, http.StatusBadRequest)
}

func TestAPI_HomeAndExit(t *testing.T) {
	snap := snapshot.NewMemStore()
	env := newEnv(t, snap, restaurant.HTTPDeps{})
	base := env.ts.URL

	doJSON(t, http.MethodPost, base+"/menu", map[string]any{"id": "1", "name": "Burger", "available": true})
	doJSON(t, http.MethodPost, base+"/order", map[string]any{"customer_name": "Alice", "dish_ids": []string{"1"}})

	resp, raw := doJSON(t, http.MethodGet, base+"/", nil)
	expect(t, resp, raw, http.StatusOK)
	var home struct {
		Menu  map[string]map[string]any `json:"menu"`
		Order map[string]map[string]any `json:"order"`
	}
	if err := json.Unmarshal(raw, &home); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if home.Menu["1"]["name"] != "Burger" || home.Order["1"]["customer_name"] != "Alice" {
		t.Fatalf("home=%s", raw)
	}

	resp, raw = doJSON(t, http.MethodGet, base+"/exit", nil)
	expect(t, resp, raw, http.StatusOK)
	if string(raw) != "Exiting the application..." {
		t.Fatalf("body=%q", raw)
	}

	for _, name := range []string{menu.SnapshotName, order.SnapshotName} {
		if _, err := snap.Load(context.Background(), name); err != nil {
			t.Fatalf("snapshot %s missing after exit: %v", name, err)
		}
	}
}

func TestAPI_SurvivesRestartOnFiles(t *testing.T) {
	dir := t.TempDir()

	fs, err := snapshot.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	first := newEnv(t, fs, restaurant.HTTPDeps{})
	doJSON(t, http.MethodPost, first.ts.URL+"/menu", map[string]any{"id": "1", "name": "Burger", "available": true})
	resp, raw := doJSON(t, http.MethodPost, first.ts.URL+"/order", map[string]any{"customer_name": "Alice", "dish_ids": []string{"1"}})
	expect(t, resp, raw, http.StatusOK)
	first.ts.Close()

	fs2, err := snapshot.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	second := newEnv(t, fs2, restaurant.HTTPDeps{})

	resp, raw = doJSON(t, http.MethodPut, second.ts.URL+"/order/1", map[string]any{"status": "delivered"})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPost, second.ts.URL+"/order", map[string]any{"customer_name": "Bob", "dish_ids": []string{"1"}})
	expect(t, resp, raw, http.StatusOK)
	var placed orderBody
	_ = json.Unmarshal(raw, &placed)
	if placed.Order.ID != 2 {
		t.Fatalf("id after restart=%d want 2", placed.Order.ID)
	}
}

func TestAPI_ReadyAndMetrics(t *testing.T) {
	env := newEnv(t, snapshot.NewMemStore(), restaurant.HTTPDeps{
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   "scrape-token",
	})
	base := env.ts.URL

	resp, raw := doJSON(t, http.MethodGet, base+"/readyz", nil)
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodGet, base+"/metrics", nil)
	expect(t, resp, raw, http.StatusForbidden)

	req, _ := http.NewRequest(http.MethodGet, base+"/metrics", nil)
	req.Header.Set("Authorization", "Bearer scrape-token")
	mresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer mresp.Body.Close()
	body, _ := io.ReadAll(mresp.Body)
	if mresp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", mresp.StatusCode)
	}
	if !strings.Contains(string(body), "restaurant_http_requests_total") {
		t.Fatalf("metrics missing request counter:\n%s", body)
	}
}

func TestAPI_PlaceRateLimited(t *testing.T) {
	env := newEnv(t, snapshot.NewMemStore(), restaurant.HTTPDeps{
		PlaceLimiter: kit.NewIPRateLimiter(1, time.Minute),
	})
	base := env.ts.URL

	doJSON(t, http.MethodPost, base+"/menu", map[string]any{"id": "1", "available": true})

	resp, raw := doJSON(t, http.MethodPost, base+"/order", map[string]any{"customer_name": "Alice", "dish_ids": []string{"1"}})
	expect(t, resp, raw, http.StatusOK)

	resp, raw = doJSON(t, http.MethodPost, base+"/order", map[string]any{"customer_name": "Alice", "dish_ids": []string{"1"}})
	expect(t, resp, raw, http.StatusTooManyRequests)

	// Other routes are not throttled.
	resp, raw = doJSON(t, http.MethodGet, base+"/order", nil)
	expect(t, resp, raw, http.StatusOK)
}
