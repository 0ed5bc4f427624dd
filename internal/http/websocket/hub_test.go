package websocket_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/hbomb79/ytmeta/internal/http/websocket"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type received struct {
	Title     string         `json:"title"`
	Arguments map[string]any `json:"arguments"`
	Id        int            `json:"id"`
	Type      int            `json:"type"`
}

func startHub(t *testing.T, hub *websocket.SocketHub) string {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Start(ctx)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.UpgradeToSocket))
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})

	if !assert.Eventually(t, func() bool { return hubRunning(srv.URL) }, time.Second, 5*time.Millisecond) {
		t.FailNow()
	}
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *gorilla.Conn {
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func read(t *testing.T, conn *gorilla.Conn) received {
	if !assert.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second))) {
		t.FailNow()
	}

	var msg received
	if !assert.NoError(t, conn.ReadJSON(&msg)) {
		t.FailNow()
	}
	return msg
}

func Test_WelcomeMessage(t *testing.T) {
	hub := websocket.New()
	hub.WithConnectionCallback(func() map[string]interface{} {
		return map[string]interface{}{"runs": []string{}}
	})
	conn := dial(t, startHub(t, hub))

	welcome := read(t, conn)
	assert.Equal(t, "CONNECTION_ESTABLISHED", welcome.Title)
	assert.Equal(t, int(websocket.Welcome), welcome.Type)
	assert.Contains(t, welcome.Arguments, "runs")

	id, ok := welcome.Arguments["client"].(string)
	assert.True(t, ok)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	assert.Equal(t, 1, hub.ClientCount())
}

func Test_WelcomeMessage_WithoutCallback(t *testing.T) {
	hub := websocket.New()
	conn := dial(t, startHub(t, hub))

	welcome := read(t, conn)
	assert.Equal(t, "CONNECTION_ESTABLISHED", welcome.Title)
	assert.Contains(t, welcome.Arguments, "client")
}

func Test_Broadcast(t *testing.T) {
	hub := websocket.New()
	url := startHub(t, hub)
	a, b := dial(t, url), dial(t, url)
	read(t, a)
	read(t, b)

	hub.Send(&websocket.SocketMessage{Title: "RUN_UPDATE", Body: map[string]interface{}{"state": "DONE"}, Type: websocket.Update})
	for _, conn := range []*gorilla.Conn{a, b} {
		msg := read(t, conn)
		assert.Equal(t, "RUN_UPDATE", msg.Title)
		assert.Equal(t, "DONE", msg.Arguments["state"])
		assert.Equal(t, int(websocket.Update), msg.Type)
	}
}

func Test_Commands(t *testing.T) {
	hub := websocket.New()
	hub.BindCommand("ECHO", func(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
		if err := message.ValidateArguments(map[string]websocket.ArgumentType{"value": websocket.StringArgument}); err != nil {
			return err
		}

		hub.Send(message.FormReply("ECHO_REPLY", map[string]interface{}{"value": message.Body["value"]}, websocket.Response))
		return nil
	})
	hub.BindCommand("FAIL", func(*websocket.SocketHub, *websocket.SocketMessage) error {
		return errors.New("induced")
	})
	conn := dial(t, startHub(t, hub))
	read(t, conn)

	tests := []struct {
		summary       string
		title         string
		arguments     map[string]any
		expectedTitle string
		expectedType  int
		expectedError string
	}{
		{"bound command", "ECHO", map[string]any{"value": "hello"}, "ECHO_REPLY", int(websocket.Response), ""},
		{"missing arguments", "ECHO", map[string]any{}, "COMMAND_FAILURE", int(websocket.ErrorResponse), "failed to validate key 'value'"},
		{"handler error", "FAIL", nil, "COMMAND_FAILURE", int(websocket.ErrorResponse), "induced"},
		{"unknown command", "NOPE", nil, "COMMAND_FAILURE", int(websocket.ErrorResponse), "Unknown command"},
	}

	for i, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			err := conn.WriteJSON(map[string]any{
				"title":     tt.title,
				"arguments": tt.arguments,
				"id":        i,
				"type":      int(websocket.Command),
			})
			if !assert.NoError(t, err) {
				t.FailNow()
			}

			reply := read(t, conn)
			assert.Equal(t, tt.expectedTitle, reply.Title)
			assert.Equal(t, tt.expectedType, reply.Type)
			assert.Equal(t, i, reply.Id)
			if tt.expectedError != "" {
				assert.Contains(t, reply.Arguments["error"], tt.expectedError)
			} else {
				assert.Equal(t, "hello", reply.Arguments["value"])
			}
		})
	}
}

func Test_SendWhenOffline(t *testing.T) {
	hub := websocket.New()
	hub.Send(&websocket.SocketMessage{Title: "ignored"})
	assert.Equal(t, 0, hub.ClientCount())

	rec := httptest.NewRecorder()
	hub.UpgradeToSocket(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 503, rec.Code)
}

func Test_ShutdownClosesClients(t *testing.T) {
	hub := websocket.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Start(ctx)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.UpgradeToSocket))
	defer srv.Close()
	if !assert.Eventually(t, func() bool { return hubRunning(srv.URL) }, time.Second, 5*time.Millisecond) {
		t.FailNow()
	}

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	read(t, conn)

	cancel()
	<-done

	if !assert.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second))) {
		t.FailNow()
	}
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}

// hubRunning reports whether the hub served by the URL accepts upgrades,
// which is only the case once Start has been called.
func hubRunning(url string) bool {
	resp, err := http.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode != http.StatusServiceUnavailable
}
