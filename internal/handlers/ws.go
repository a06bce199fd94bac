package handlers

import (
	"log"
	"net/http"
	"time"

	"timeoff-tracker-go/internal/notify"

	"github.com/gorilla/websocket"
)

const (
	authWait   = 10 * time.Second
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type authenticateFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// WSHandler upgrades the live channel. The caller must present a valid
// bearer token (the session, not the client's frame, decides identity and
// role) and then send an authenticate frame to confirm which user the tab
// belongs to.
func (h *Handler) WSHandler(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}
	sess, err := h.Sessions.GetSession(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(authWait))
	var frame authenticateFrame
	if err := conn.ReadJSON(&frame); err != nil || frame.Type != "authenticate" {
		conn.Close()
		return
	}
	if frame.UserID != "" && frame.UserID != sess.UserID {
		// The socket may only register as the user the token belongs to.
		conn.Close()
		return
	}

	session := notify.NewSession(sess.UserID, sess.Role)
	h.Hub.Register(session)
	log.Printf("User %s authenticated on connection %s", session.UserID, session.ConnID)

	go h.writePump(conn, session)
	h.readPump(conn, session)
}

// writePump drains the session channel onto the wire and keeps the
// connection alive with pings. It exits when the hub closes the session.
func (h *Handler) writePump(conn *websocket.Conn, session *notify.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case n, ok := <-session.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump watches for disconnect; clients send nothing after authenticate.
func (h *Handler) readPump(conn *websocket.Conn, session *notify.Session) {
	defer func() {
		h.Hub.Unregister(session)
		conn.Close()
		log.Printf("Connection %s closed for user %s", session.ConnID, session.UserID)
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
