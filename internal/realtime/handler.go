package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// SocketHandler handles HTTP-to-WebSocket upgrades and the presence REST
// endpoints.
type SocketHandler struct {
	hub *Hub
}

// NewSocketHandler creates a new handler bound to the given Hub.
func NewSocketHandler(hub *Hub) *SocketHandler {
	return &SocketHandler{hub: hub}
}

// RegisterRoutes registers the WebSocket and presence endpoints on the
// provided Echo groups. ws carries the socket endpoint (credential checked by
// the hub itself), api the authenticated presence queries.
func (sh *SocketHandler) RegisterRoutes(ws, api *echo.Group) {
	ws.GET("/ws", sh.HandleConnect)
	api.GET("/presence", sh.HandlePresence)
	api.GET("/presence/:user_id", sh.HandleUserPresence)
}

// HandleConnect upgrades an HTTP connection to WebSocket, authenticates the
// presented credential, and starts read/write pumps. Connections that fail
// authentication are closed without an error frame.
func (sh *SocketHandler) HandleConnect(c echo.Context) error {
	credential := bearerCredential(c)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
		conn: &gorillaConnAdapter{ws},
	}

	sh.hub.Register(client)

	if err := sh.hub.Authenticate(client, credential); err != nil {
		sh.hub.Unregister(client)
		ws.Close()
		return nil
	}

	go sh.writePump(client, ws)
	go sh.readPump(client, ws)

	return nil
}

// HandlePresence handles GET /presence.
func (sh *SocketHandler) HandlePresence(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"online_count": sh.hub.Registry().Len(),
	})
}

// HandleUserPresence handles GET /presence/:user_id.
func (sh *SocketHandler) HandleUserPresence(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"online":  sh.hub.Registry().Online(userID),
	})
}

// bearerCredential extracts the token from the Authorization header, falling
// back to the token query parameter for browser clients that cannot set
// headers on websocket upgrades.
func bearerCredential(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.QueryParam("token")
}

// readPump reads frames from the WebSocket connection and processes them.
func (sh *SocketHandler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		sh.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var msg Event
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // Ignore malformed frames.
		}

		sh.hub.ProcessMessage(context.Background(), client, msg)
	}
}

// writePump writes frames from the Send channel to the WebSocket connection.
func (sh *SocketHandler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
