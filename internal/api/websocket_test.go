package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
)

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, req WSRequest) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestWebSocketBroadcast(t *testing.T) {
	env := testServer(t)
	conn := dialWS(t, env)

	sendWS(t, conn, WSRequest{Op: WSOpSubscribe, ID: "1", Channels: []string{ChannelMonitorBrightness}})
	ack := readWS(t, conn)
	if ack.Type != WSTypeAck || ack.ID != "1" {
		t.Fatalf("ack = %+v", ack)
	}

	rec := env.do(t, http.MethodPut, "/api/v1/monitors/desktop_1/brightness", `{"brightness":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", rec.Code)
	}

	event := readWS(t, conn)
	if event.Type != WSTypeEvent || event.Channel != ChannelMonitorBrightness || event.Seq == 0 {
		t.Errorf("event = %+v", event)
	}
	data, _ := event.Data.(map[string]any)
	if data["id"] != "desktop_1" || data["brightness"] != float64(20) || data["source"] != "api" {
		t.Errorf("data = %v", data)
	}
}

func TestWebSocketSubscribeSendsState(t *testing.T) {
	env := testServer(t)
	conn := dialWS(t, env)

	sendWS(t, conn, WSRequest{Op: WSOpSubscribe, ID: "s", Channels: []string{ChannelMonitorDetected}})
	if ack := readWS(t, conn); ack.Type != WSTypeAck {
		t.Fatalf("ack = %+v", ack)
	}

	state := readWS(t, conn)
	if state.Type != WSTypeState || state.Channel != ChannelMonitorDetected || state.ID != "s" {
		t.Fatalf("state = %+v", state)
	}
	data, _ := state.Data.(map[string]any)
	if data["count"] != float64(2) {
		t.Errorf("count = %v, want 2", data["count"])
	}
}

func TestWebSocketRequestErrors(t *testing.T) {
	env := testServer(t)
	conn := dialWS(t, env)

	tests := []struct {
		name string
		req  WSRequest
		want string
	}{
		{"unknown channel", WSRequest{Op: WSOpSubscribe, ID: "a", Channels: []string{ChannelScheduleTick, "bogus"}}, "unknown channel: bogus"},
		{"no channels", WSRequest{Op: WSOpSubscribe, ID: "b"}, "no channels given"},
		{"unknown op", WSRequest{Op: "shout", ID: "c"}, "unknown op: shout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sendWS(t, conn, tt.req)
			msg := readWS(t, conn)
			data, _ := msg.Data.(map[string]any)
			if msg.Type != WSTypeError || msg.ID != tt.req.ID || data["message"] != tt.want {
				t.Errorf("reply = %+v", msg)
			}
		})
	}

	// A rejected subscribe adds nothing.
	sendWS(t, conn, WSRequest{Op: WSOpUnsubscribe, ID: "d"})
	ack := readWS(t, conn)
	data, _ := ack.Data.(map[string]any)
	if channels, _ := data["channels"].([]any); ack.Type != WSTypeAck || len(channels) != 0 {
		t.Errorf("ack = %+v", ack)
	}

	sendWS(t, conn, WSRequest{Op: WSOpPing, ID: "e"})
	if pong := readWS(t, conn); pong.Type != WSTypePong || pong.ID != "e" {
		t.Errorf("pong = %+v", pong)
	}
}

func TestHubIgnoresUnsubscribed(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testLogger())
	client := newWSClient(hub, nil, nil)
	hub.Register(client)

	hub.Broadcast(ChannelScheduleTick, map[string]int{"target": 50})
	select {
	case msg := <-client.send:
		t.Errorf("unsubscribed client received %s", msg)
	default:
	}

	client.channels[ChannelScheduleTick] = struct{}{}
	hub.Broadcast(ChannelScheduleTick, map[string]int{"target": 50})
	hub.Broadcast("not.a.channel", nil)
	select {
	case msg := <-client.send:
		if !bytes.Contains(msg, []byte(`"channel":"schedule.tick"`)) || !bytes.Contains(msg, []byte(`"seq":2`)) {
			t.Errorf("message = %s", msg)
		}
	default:
		t.Error("subscribed client received nothing")
	}
	if len(client.send) != 0 {
		t.Error("event on an unknown channel was delivered")
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
	if !client.enqueue([]byte("late")) {
		t.Error("enqueue on a closed client should be swallowed")
	}
}

func TestHubLaggingClient(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testLogger())
	client := newWSClient(hub, nil, nil)
	client.channels[ChannelMonitorBrightness] = struct{}{}
	hub.Register(client)

	for i := 0; i < wsSendBufferSize+5; i++ {
		hub.Broadcast(ChannelMonitorBrightness, map[string]int{"i": i})
	}
	if len(client.send) != wsSendBufferSize {
		t.Fatalf("queued %d, want %d", len(client.send), wsSendBufferSize)
	}

	first := <-client.send
	var msg WSMessage
	if err := json.Unmarshal(first, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Seq != 1 {
		t.Errorf("first seq = %d, want 1", msg.Seq)
	}
}
