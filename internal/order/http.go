package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Restaurant/pkg/kit"
)

type Server struct {
	Engine *Engine
	Log    *zap.Logger

	// PlaceLimiter throttles POST /order per client IP; nil disables it.
	PlaceLimiter *kit.IPRateLimiter
}

// looseID accepts a JSON string or number and keeps its text form.
type looseID string

func (id *looseID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = looseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a string or a number")
	}
	*id = looseID(n.String())
	return nil
}

type placeReq struct {
	CustomerName string    `json:"customer_name"`
	DishIDs      []looseID `json:"dish_ids"`
}

type updateReq struct {
	OrderID looseID `json:"order_id"`
	Status  string  `json:"status"`
}

type statusReq struct {
	Status string `json:"status"`
}

type orderResp struct {
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

type messageResp struct {
	Message string `json:"message"`
}

type listResp struct {
	Order map[int]Order `json:"order"`
}

func (s *Server) Register(r chi.Router) {
	r.With(s.PlaceLimiter.Middleware).Post("/order", s.place)
	r.Put("/order", s.updateProgress)
	r.Get("/order", s.list)
	r.Put("/order/{id}", s.updateAny)
	r.Delete("/order/{id}", s.delete)
}

func (s *Server) place(w http.ResponseWriter, r *http.Request) {
	var req placeReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	ids := make([]string, len(req.DishIDs))
	for i, id := range req.DishIDs {
		ids[i] = string(id)
	}

	o, err := s.Engine.Place(r.Context(), req.CustomerName, ids)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orderResp{Message: "Order placed successfully", Order: o})
}

// updateProgress serves PUT /order, which cannot reset an order to received.
func (s *Server) updateProgress(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	id, ok := parseOrderID(string(req.OrderID))
	if !ok {
		s.writeError(w, r, ErrNotFound)
		return
	}
	s.updateStatus(w, r, id, req.Status, ProgressStatuses)
}

// updateAny serves PUT /order/{id}, which accepts every status.
func (s *Server) updateAny(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, r, ErrNotFound)
		return
	}

	if _, found, _ := s.Engine.Get(r.Context(), id); !found {
		s.writeError(w, r, ErrNotFound)
		return
	}

	var req statusReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	s.updateStatus(w, r, id, req.Status, AllStatuses)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request, id int, status string, allowed []Status) {
	o, err := s.Engine.UpdateStatus(r.Context(), id, status, allowed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orderResp{Message: "Order status updated successfully", Order: o})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, r, ErrNotFound)
		return
	}

	if err := s.Engine.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, messageResp{Message: "Order deleted successfully"})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Engine.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, listResp{Order: orders})
}

// parseOrderID accepts only plain decimal digits, so "+1" or "-1" never match.
func parseOrderID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dishErr *DishError

	switch {
	case errors.As(err, &dishErr):
		kit.WriteError(w, r, http.StatusBadRequest, dishErr.Error(), map[string]any{"dish_id": dishErr.DishID})
	case errors.Is(err, ErrNoItems):
		kit.WriteError(w, r, http.StatusBadRequest, "dish_ids required", nil)
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "Order not found", nil)
	case errors.Is(err, ErrInvalidStatus):
		kit.WriteError(w, r, http.StatusBadRequest, "Invalid status", nil)
	case errors.Is(err, ErrInvalidState):
		kit.WriteError(w, r, http.StatusBadRequest, "Only delivered orders can be deleted", nil)
	default:
		if s.Log != nil {
			s.Log.Error("order operation failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
