package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"comanda/backend/internal/notify"
	"comanda/backend/internal/security"
	userdomain "comanda/backend/internal/user/domain"
)

const maxDecodeErrorsPerConn = 5

// UserResolver looks up the owning user during the handshake.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

type wsUserContextKey struct{}

// Gateway authenticates websocket handshakes, assigns role-scoped rooms, and
// serves the per-connection event surface.
type Gateway struct {
	hub     *Hub
	history *notify.History
	tokens  *security.TokenProvider
	users   UserResolver
	log     *slog.Logger
}

// NewGateway returns a gateway broadcasting through hub and answering history
// requests from history.
func NewGateway(hub *Hub, history *notify.History, tokens *security.TokenProvider, users UserResolver, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{hub: hub, history: history, tokens: tokens, users: users, log: log}
}

// Register mounts the websocket endpoint on mux.
func (g *Gateway) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", g.handleWS)
}

// handleWS rejects unauthenticated handshakes before the upgrade; a rejected
// connection never joins any room.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := accessTokenFromRequest(r)
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	userID, err := g.tokens.ValidateAccess(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	user, err := g.users.GetByID(r.Context(), userID)
	if err != nil {
		g.log.Error("realtime: user lookup failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	r = r.WithContext(context.WithValue(r.Context(), wsUserContextKey{}, user))
	websocket.Handler(g.serve).ServeHTTP(w, r)
}

// accessTokenFromRequest reads the bearer token from the Authorization header
// or the token query parameter (browser websocket clients cannot set headers).
func accessTokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type connectionStatePayload struct {
	UserID string   `json:"userId"`
	Rol    string   `json:"rol"`
	Rooms  []string `json:"rooms"`
}

type connectionConfirmedPayload struct {
	UserID    string    `json:"userId"`
	Nombre    string    `json:"nombre"`
	Rol       string    `json:"rol"`
	Timestamp time.Time `json:"timestamp"`
}

type orderRoomPayload struct {
	OrderID string `json:"orderId"`
}

func (g *Gateway) serve(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	user, ok := conn.Request().Context().Value(wsUserContextKey{}).(*userdomain.User)
	if !ok {
		return
	}

	p := newPeer(json.NewEncoder(conn))
	defer p.close()
	rooms := notify.RoomsForRole(user.Role, user.ID)
	for _, room := range rooms {
		g.hub.join(room, p)
	}
	defer g.hub.leaveAll(p)

	roomNames := make([]string, len(rooms))
	for i, room := range rooms {
		roomNames[i] = string(room)
	}
	g.sendEvent(p, notify.EventConnectionState, connectionStatePayload{
		UserID: user.ID,
		Rol:    string(user.Role),
		Rooms:  roomNames,
	})
	g.log.Info("realtime: connected", "user_id", user.ID, "role", string(user.Role))

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0
		g.dispatch(p, user, frame)
	}
}

func (g *Gateway) dispatch(p *peer, user *userdomain.User, frame Frame) {
	switch frame.Event {
	case "announce-ready":
		g.sendEvent(p, notify.EventConnectionConfirmed, connectionConfirmedPayload{
			UserID:    user.ID,
			Nombre:    user.Name,
			Rol:       string(user.Role),
			Timestamp: time.Now().UTC(),
		})
		if user.Role == userdomain.RoleAdmin {
			g.sendHistory(p)
		}
	case "request-history":
		if user.Role != userdomain.RoleAdmin {
			g.sendAuthorizationError(p, "solo administradores pueden ver el historial")
			return
		}
		g.sendHistory(p)
	case "join-order-room":
		orderID := g.orderIDFrom(p, frame)
		if orderID == "" {
			return
		}
		g.hub.join(notify.OrderRoom(orderID), p)
	case "leave-order-room":
		orderID := g.orderIDFrom(p, frame)
		if orderID == "" {
			return
		}
		g.hub.leave(notify.OrderRoom(orderID), p)
	default:
		g.log.Debug("realtime: unsupported event", "event", frame.Event, "user_id", user.ID)
	}
}

func (g *Gateway) orderIDFrom(p *peer, frame Frame) string {
	var payload orderRoomPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.sendAuthorizationError(p, "payload inválido")
		return ""
	}
	return strings.TrimSpace(payload.OrderID)
}

func (g *Gateway) sendHistory(p *peer) {
	g.sendEvent(p, notify.EventHistorySnapshot, g.history.Recent(notify.HistoryCapacity))
}

func (g *Gateway) sendAuthorizationError(p *peer, msg string) {
	g.sendEvent(p, notify.EventAuthorizationError, map[string]string{"error": msg})
}

func (g *Gateway) sendEvent(p *peer, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		g.log.Warn("realtime: marshal payload", "event", event, "error", err)
		return
	}
	if err := p.send(Frame{Event: event, Payload: body}); err != nil {
		g.log.Debug("realtime: write failed", "event", event, "error", err)
	}
}
