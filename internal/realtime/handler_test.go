package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vanuse/clinic/internal/platform/auth"
)

func newTestServer(t *testing.T, journal Journal) (*Hub, *httptest.Server) {
	t.Helper()

	verifier := &stubVerifier{tokens: map[string]*auth.Claims{
		"token-42": {UserID: 42, Role: "doctor", Email: "doc@clinic.test"},
		"token-7":  {UserID: 7, Role: "laboratory", Email: "lab@clinic.test"},
	}}
	hub := NewHub(NewRegistry(), verifier, journal, zerolog.Nop())
	handler := NewSocketHandler(hub)

	e := echo.New()
	handler.RegisterRoutes(e.Group(""), e.Group("/api/v1"))

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return hub, server
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func dialWS(t *testing.T, url string, header http.Header) *gorillawebsocket.Conn {
	t.Helper()
	dialer := gorillawebsocket.Dialer{}
	conn, resp, err := dialer.Dial(url, header)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSocketHandler_ConnectWithBearerHeader(t *testing.T) {
	hub, server := newTestServer(t, nil)

	header := http.Header{}
	header.Set("Authorization", "Bearer token-42")
	conn := dialWS(t, wsURL(server, "/ws"), header)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if evt.Event != EventConnectionStatus {
		t.Fatalf("expected connection_status, got %s", evt.Event)
	}

	if !hub.Registry().Online(42) {
		t.Error("expected user 42 online after connect")
	}
}

func TestSocketHandler_ConnectWithQueryToken(t *testing.T) {
	hub, server := newTestServer(t, nil)

	conn := dialWS(t, wsURL(server, "/ws?token=token-42"), nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if evt.Event != EventConnectionStatus {
		t.Fatalf("expected connection_status, got %s", evt.Event)
	}

	if !hub.Registry().Online(42) {
		t.Error("expected user 42 online after connect")
	}
}

func TestSocketHandler_ConnectMissingCredential(t *testing.T) {
	hub, server := newTestServer(t, nil)

	conn := dialWS(t, wsURL(server, "/ws"), nil)

	// The server closes the socket without sending any frame.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read to fail on a rejected connection")
	}

	if hub.Registry().Len() != 0 {
		t.Error("registry must stay empty after rejected connection")
	}
}

func TestSocketHandler_ConnectInvalidCredential(t *testing.T) {
	hub, server := newTestServer(t, nil)

	conn := dialWS(t, wsURL(server, "/ws?token=forged"), nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read to fail on a rejected connection")
	}

	if hub.Registry().Len() != 0 {
		t.Error("registry must stay empty after rejected connection")
	}
}

func TestSocketHandler_RouteBetweenLiveConnections(t *testing.T) {
	_, server := newTestServer(t, nil)

	sender := dialWS(t, wsURL(server, "/ws?token=token-42"), nil)
	recipient := dialWS(t, wsURL(server, "/ws?token=token-7"), nil)

	// Drain connection_status on both.
	sender.SetReadDeadline(time.Now().Add(2 * time.Second))
	recipient.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := sender.ReadJSON(&evt); err != nil {
		t.Fatalf("sender status: %v", err)
	}
	if err := recipient.ReadJSON(&evt); err != nil {
		t.Fatalf("recipient status: %v", err)
	}

	frame := `{"event":"send_patient_info","data":{"recipient_id":7,"patient_info":{"name":"Jane Doe","age":34}}}`
	if err := sender.WriteMessage(gorillawebsocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	recipient.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := recipient.ReadJSON(&evt); err != nil {
		t.Fatalf("failed to read routed event: %v", err)
	}
	if evt.Event != EventNewPatientInfo {
		t.Fatalf("expected new_patient_info, got %s", evt.Event)
	}
	var info map[string]interface{}
	if err := json.Unmarshal(evt.Data, &info); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if info["name"] != "Jane Doe" {
		t.Errorf("expected payload delivered verbatim, got %v", info)
	}
}

func TestSocketHandler_DisconnectUnbinds(t *testing.T) {
	hub, server := newTestServer(t, nil)

	conn := dialWS(t, wsURL(server, "/ws?token=token-42"), nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("failed to read status: %v", err)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Registry().Online(42) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Registry().Online(42) {
		t.Error("expected user 42 offline after disconnect")
	}
}

func TestSocketHandler_MalformedFramesIgnored(t *testing.T) {
	hub, server := newTestServer(t, nil)

	conn := dialWS(t, wsURL(server, "/ws?token=token-42"), nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("failed to read status: %v", err)
	}

	if err := conn.WriteMessage(gorillawebsocket.TextMessage, []byte(`{not json`)); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	// Connection stays up and bound.
	time.Sleep(50 * time.Millisecond)
	if !hub.Registry().Online(42) {
		t.Error("expected connection to survive a malformed frame")
	}
}

func TestSocketHandler_PresenceEndpoints(t *testing.T) {
	_, server := newTestServer(t, nil)

	conn := dialWS(t, wsURL(server, "/ws?token=token-42"), nil)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("failed to read status: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/v1/presence")
	if err != nil {
		t.Fatalf("presence request failed: %v", err)
	}
	defer resp.Body.Close()

	var counts map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		t.Fatalf("failed to decode presence response: %v", err)
	}
	if counts["online_count"] != 1 {
		t.Errorf("expected online_count 1, got %d", counts["online_count"])
	}

	resp2, err := http.Get(server.URL + "/api/v1/presence/42")
	if err != nil {
		t.Fatalf("user presence request failed: %v", err)
	}
	defer resp2.Body.Close()

	var user map[string]interface{}
	if err := json.NewDecoder(resp2.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode user presence response: %v", err)
	}
	if user["online"] != true {
		t.Errorf("expected user 42 online, got %v", user["online"])
	}
}
