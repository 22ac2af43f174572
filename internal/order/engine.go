package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Restaurant/internal/menu"
	"Restaurant/internal/snapshot"
)

// SnapshotName is the key orders are persisted under.
const SnapshotName = "orders"

// Menu is the dish lookup placement validates against.
type Menu interface {
	Get(ctx context.Context, id string) (menu.Dish, bool, error)
}

type Deps struct {
	Menu      Menu
	Snapshots snapshot.Store
	Log       *zap.Logger
	Metrics   *Metrics

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// state is the persisted form: ids come from NextID so a deleted order's id
// is never handed out again.
type state struct {
	NextID int           `json:"next_id"`
	Orders map[int]Order `json:"orders"`
}

type Engine struct {
	mu     sync.RWMutex
	orders map[int]Order
	nextID int

	menu    Menu
	snap    snapshot.Store
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// Open loads the orders snapshot; a missing snapshot yields no orders.
func Open(ctx context.Context, deps Deps) (*Engine, error) {
	e := &Engine{
		menu:    deps.Menu,
		snap:    deps.Snapshots,
		log:     deps.Log,
		metrics: deps.Metrics,
		now:     deps.Now,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}

	var st state
	if _, err := snapshot.LoadJSON(ctx, e.snap, SnapshotName, &st); err != nil {
		return nil, err
	}
	if st.Orders == nil {
		st.Orders = map[int]Order{}
	}
	e.orders = st.Orders
	e.nextID = st.NextID

	// Older snapshots carry no counter; resume after the highest stored id.
	if floor := maxID(e.orders) + 1; e.nextID < floor {
		e.nextID = floor
	}

	e.metrics.loaded(len(e.orders))
	e.log.Info("orders loaded", zap.Int("orders", len(e.orders)), zap.Int("next_id", e.nextID))
	return e, nil
}

func maxID(orders map[int]Order) int {
	m := 0
	for id := range orders {
		if id > m {
			m = id
		}
	}
	return m
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.snap.Ping(ctx)
}

// Place validates every dish before creating anything: one unknown or
// unavailable dish rejects the whole order with a *DishError.
func (e *Engine) Place(ctx context.Context, customerName string, dishIDs []string) (Order, error) {
	if len(dishIDs) == 0 {
		e.metrics.rejected("no_items")
		return Order{}, ErrNoItems
	}

	items := make([]menu.Dish, 0, len(dishIDs))
	for _, id := range dishIDs {
		d, ok, err := e.menu.Get(ctx, id)
		if err != nil {
			return Order{}, err
		}
		if !ok {
			e.metrics.rejected("dish_not_found")
			return Order{}, &DishError{DishID: id, Err: ErrDishNotFound}
		}
		if !d.Available {
			e.metrics.rejected("dish_unavailable")
			return Order{}, &DishError{DishID: id, Err: ErrDishUnavailable}
		}
		items = append(items, d.Clone())
	}

	now := e.now().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()

	o := Order{
		ID:           e.nextID,
		Ref:          "o_" + uuid.NewString(),
		CustomerName: customerName,
		Items:        items,
		Status:       StatusReceived,
		PlacedAt:     now,
		UpdatedAt:    now,
	}
	e.orders[o.ID] = o
	e.nextID++

	e.metrics.placed(len(e.orders))
	e.log.Info("order placed",
		zap.Int("order_id", o.ID),
		zap.String("ref", o.Ref),
		zap.Int("items", len(items)),
	)

	return o.Clone(), e.persistLocked(ctx)
}

// UpdateStatus sets the status to any value in allowed; transitions are not
// ordered, so an order may move backwards.
func (e *Engine) UpdateStatus(ctx context.Context, id int, status string, allowed []Status) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	st, ok := parseStatus(status, allowed)
	if !ok {
		return Order{}, ErrInvalidStatus
	}

	prev := o.Status
	o.Status = st
	o.UpdatedAt = e.now().UTC()
	e.orders[id] = o

	e.metrics.statusChanged(st)
	e.log.Info("order status updated",
		zap.Int("order_id", id),
		zap.String("from", string(prev)),
		zap.String("to", string(st)),
	)

	return o.Clone(), e.persistLocked(ctx)
}

// Delete removes a delivered order; any other status yields ErrInvalidState.
func (e *Engine) Delete(ctx context.Context, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusDelivered {
		return ErrInvalidState
	}
	delete(e.orders, id)

	e.metrics.deleted(len(e.orders))
	e.log.Info("order deleted", zap.Int("order_id", id))

	return e.persistLocked(ctx)
}

func (e *Engine) Get(ctx context.Context, id int) (Order, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	o, ok := e.orders[id]
	if !ok {
		return Order{}, false, nil
	}
	return o.Clone(), true, nil
}

// List returns every order keyed by id, unfiltered.
func (e *Engine) List(ctx context.Context) (map[int]Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[int]Order, len(e.orders))
	for id, o := range e.orders {
		out[id] = o.Clone()
	}
	return out, nil
}

func (e *Engine) Flush(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.persistLocked(ctx)
}

func (e *Engine) persistLocked(ctx context.Context) error {
	st := state{NextID: e.nextID, Orders: e.orders}
	if err := snapshot.SaveJSON(ctx, e.snap, SnapshotName, st); err != nil {
		e.log.Error("orders snapshot failed", zap.Error(err))
		return err
	}
	return nil
}
