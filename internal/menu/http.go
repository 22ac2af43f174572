package menu

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Restaurant/pkg/kit"
)

type Server struct {
	Store *Store
	Log   *zap.Logger
}

type dishResp struct {
	Message string `json:"message"`
	Dish    Dish   `json:"dish"`
}

type messageResp struct {
	Message string `json:"message"`
}

func (s *Server) Register(r chi.Router) {
	r.Post("/menu", s.upsert)
	r.Delete("/menu/{id}", s.remove)
	r.Put("/menu/{id}", s.toggle)
}

func (s *Server) upsert(w http.ResponseWriter, r *http.Request) {
	var d Dish
	if err := kit.DecodeJSON(w, r, &d); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	stored, err := s.Store.Upsert(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err, d.ID)
		return
	}
	kit.WriteJSON(w, http.StatusOK, dishResp{Message: "Item has been added", Dish: stored})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Store.Remove(r.Context(), id); err != nil {
		s.writeError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, messageResp{Message: "Dish removed successfully"})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.Store.ToggleAvailability(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, dishResp{Message: "Availability updated successfully", Dish: d})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, id string) {
	switch {
	case errors.Is(err, ErrMissingID):
		kit.WriteError(w, r, http.StatusBadRequest, "dish id required", nil)
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "Dish not found", map[string]any{"id": id})
	default:
		if s.Log != nil {
			s.Log.Error("menu operation failed", zap.Error(err), zap.String("dish_id", id))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
