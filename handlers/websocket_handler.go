package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/titlescore/titlescore/live"
	"github.com/titlescore/titlescore/middleware"
	"github.com/titlescore/titlescore/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS для websocket-а закрывается на уровне прокси.
		return true
	},
}

type WebsocketHandler struct {
	hub        *live.Hub
	authorizer services.Authorizer
	logger     *slog.Logger
}

func NewWebsocketHandler(hub *live.Hub, authorizer services.Authorizer, logger *slog.Logger) *WebsocketHandler {
	return &WebsocketHandler{hub: hub, authorizer: authorizer, logger: logger}
}

// ServeStandings обрабатывает GET /ws/contests/{contestID}: подписка на
// live-обновления табло конкурса.
func (h *WebsocketHandler) ServeStandings(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	contestID, err := getParamFromURL(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Право на просмотр проверяется один раз при подключении.
	if err := h.authorizer.Authorize(r.Context(), currentUserID, contestID, services.PermissionView); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			slog.String("contest_id", contestID), slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: contestID,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
