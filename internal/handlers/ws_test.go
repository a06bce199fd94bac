package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeoff-tracker-go/client"
	"timeoff-tracker-go/internal/models"
)

func startWSServer(t *testing.T, env *testEnv) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(env.handler.WSHandler))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWSHandler(t *testing.T) {
	t.Run("rejects a connection without a token", func(t *testing.T) {
		env := newTestEnv(testEmployee)
		wsURL := startWSServer(t, env)

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Nil(t, conn)
	})

	t.Run("rejects an invalid token", func(t *testing.T) {
		env := newTestEnv(testEmployee)
		wsURL := startWSServer(t, env)

		header := http.Header{}
		header.Set("X-Auth-Token", "bogus")
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Nil(t, conn)
	})

	t.Run("closes the connection on a mismatched user id", func(t *testing.T) {
		env := newTestEnv(testEmployee)
		wsURL := startWSServer(t, env)
		token, err := env.sessions.CreateSession(context.Background(), testEmployee)
		require.NoError(t, err)

		header := http.Header{}
		header.Set("X-Auth-Token", token)
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		defer conn.Close()

		// The socket may only register as the token's user.
		require.NoError(t, conn.WriteJSON(map[string]string{
			"type":    "authenticate",
			"user_id": "someone-else",
		}))

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = conn.ReadMessage()
		assert.Error(t, err)
		assert.Nil(t, env.hub.Lookup(testEmployee.ID))
	})

	t.Run("delivers notifications into the client inbox", func(t *testing.T) {
		env := newTestEnv(testEmployee)
		wsURL := startWSServer(t, env)
		token, err := env.sessions.CreateSession(context.Background(), testEmployee)
		require.NoError(t, err)

		inbox := client.NewInbox(nil)
		c, err := client.Dial(context.Background(), wsURL, token, testEmployee.ID, inbox)
		require.NoError(t, err)
		defer c.Close()

		waitFor(t, func() bool { return env.hub.Lookup(testEmployee.ID) != nil })

		ok := env.hub.SendToUser(testEmployee.ID, models.NotifyRequestDecision, map[string]any{
			"request_id": "r1",
			"status":     models.StatusApproved,
		})
		require.True(t, ok)

		waitFor(t, func() bool { return inbox.UnreadCount() == 1 })
		got := inbox.Notifications()
		require.Len(t, got, 1)
		assert.Equal(t, models.NotifyRequestDecision, got[0].Type)
		assert.Equal(t, "r1", got[0].Data["request_id"])
	})

	t.Run("disconnect unregisters the session", func(t *testing.T) {
		env := newTestEnv(testEmployee)
		wsURL := startWSServer(t, env)
		token, err := env.sessions.CreateSession(context.Background(), testEmployee)
		require.NoError(t, err)

		c, err := client.Dial(context.Background(), wsURL, token, testEmployee.ID, client.NewInbox(nil))
		require.NoError(t, err)

		waitFor(t, func() bool { return env.hub.Lookup(testEmployee.ID) != nil })
		require.NoError(t, c.Close())
		waitFor(t, func() bool { return env.hub.Lookup(testEmployee.ID) == nil })
	})
}
