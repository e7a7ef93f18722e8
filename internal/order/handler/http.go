package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"comanda/backend/internal/notify"
	"comanda/backend/internal/order/domain"
	"comanda/backend/internal/order/repository"
	"comanda/backend/internal/server"
	userdomain "comanda/backend/internal/user/domain"
)

// Handler exposes the order and table endpoints. All routes assume the
// authentication middleware ran first.
type Handler struct {
	repo repository.Repository
	bus  *notify.Bus
}

// NewHandler returns an order handler publishing through bus.
func NewHandler(repo repository.Repository, bus *notify.Bus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Register mounts the order routes on mux behind the given middleware chain.
func (h *Handler) Register(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	staff := server.RequireRole(userdomain.RoleCook, userdomain.RoleWaiter, userdomain.RoleAdmin)
	floor := server.RequireRole(userdomain.RoleWaiter, userdomain.RoleAdmin)

	mux.Handle("POST /orders", authn(floor(http.HandlerFunc(h.createOrder))))
	mux.Handle("PUT /orders/{id}/state", authn(staff(http.HandlerFunc(h.updateOrderState))))
	mux.Handle("DELETE /orders/{id}", authn(floor(http.HandlerFunc(h.cancelOrder))))
	mux.Handle("PUT /tables/{id}", authn(floor(http.HandlerFunc(h.updateTable))))
}

type createOrderRequest struct {
	MesaID string `json:"mesa_id"`
	Notas  string `json:"notas"`
}

type orderResponse struct {
	ID     string `json:"id"`
	MesaID string `json:"mesa_id"`
	Estado string `json:"estado"`
}

type stateRequest struct {
	Estado string `json:"estado"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := server.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MesaID == "" {
		writeError(w, http.StatusBadRequest, "mesa_id es requerido")
		return
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New().String(),
		TableID:   req.MesaID,
		State:     domain.StatePending,
		Notes:     req.Notas,
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.CreateOrder(r.Context(), order); err != nil {
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	h.bus.OrderCreated(order.ID, order.TableID)
	writeJSON(w, http.StatusCreated, orderResponse{ID: order.ID, MesaID: order.TableID, Estado: string(order.State)})
}

func (h *Handler) updateOrderState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req stateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := domain.ParseState(req.Estado)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	if order == nil || order.Cancelled() {
		writeError(w, http.StatusNotFound, "pedido no encontrado")
		return
	}
	if err := h.repo.UpdateOrderState(r.Context(), id, state); err != nil {
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	h.bus.OrderStateChanged(id, string(state))
	writeJSON(w, http.StatusOK, orderResponse{ID: id, MesaID: order.TableID, Estado: string(state)})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	if order == nil || order.Cancelled() {
		writeError(w, http.StatusNotFound, "pedido no encontrado")
		return
	}
	if err := h.repo.CancelOrder(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	h.bus.OrderCancelled(id)
	writeJSON(w, http.StatusOK, orderResponse{ID: id, MesaID: order.TableID, Estado: string(domain.StateCancelled)})
}

func (h *Handler) updateTable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req stateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := domain.ParseTableState(req.Estado)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := h.repo.GetTable(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	if table == nil {
		writeError(w, http.StatusNotFound, "mesa no encontrada")
		return
	}
	if err := h.repo.UpdateTableState(r.Context(), id, state); err != nil {
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}
	h.bus.TableUpdated(id, string(state))
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "estado": string(state)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}
