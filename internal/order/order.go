package order

import (
	"errors"
	"fmt"
	"time"

	"Restaurant/internal/menu"
)

type Status string

const (
	StatusReceived       Status = "received"
	StatusPreparing      Status = "preparing"
	StatusReadyForPickup Status = "ready for pickup"
	StatusDelivered      Status = "delivered"
)

// AllStatuses is every recognized status, initial first.
var AllStatuses = []Status{
	StatusReceived,
	StatusPreparing,
	StatusReadyForPickup,
	StatusDelivered,
}

// ProgressStatuses excludes received: PUT /order cannot move an order back to it.
var ProgressStatuses = []Status{
	StatusPreparing,
	StatusReadyForPickup,
	StatusDelivered,
}

func parseStatus(s string, allowed []Status) (Status, bool) {
	for _, st := range allowed {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

var (
	ErrNotFound        = errors.New("order not found")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidState    = errors.New("only delivered orders can be deleted")
	ErrNoItems         = errors.New("dish_ids required")
	ErrDishNotFound    = errors.New("dish does not exist")
	ErrDishUnavailable = errors.New("dish is not available")
)

// DishError names the dish that made a placement fail.
type DishError struct {
	DishID string
	Err    error
}

func (e *DishError) Error() string {
	if errors.Is(e.Err, ErrDishUnavailable) {
		return fmt.Sprintf("Dish with ID %s is not available", e.DishID)
	}
	return fmt.Sprintf("Dish with ID %s does not exist", e.DishID)
}

func (e *DishError) Unwrap() error { return e.Err }

type Order struct {
	ID           int         `json:"order_id"`
	Ref          string      `json:"ref"`
	CustomerName string      `json:"customer_name"`
	Items        []menu.Dish `json:"items"`
	Status       Status      `json:"status"`
	PlacedAt     time.Time   `json:"placed_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]menu.Dish, len(o.Items))
		for i, d := range o.Items {
			c.Items[i] = d.Clone()
		}
	}
	return c
}
