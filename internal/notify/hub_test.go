package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeoff-tracker-go/internal/models"
)

func drain(s *Session) []models.Notification {
	var out []models.Notification
	for {
		select {
		case n := <-s.Messages():
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestHubRegister(t *testing.T) {
	t.Run("lookup returns registered session", func(t *testing.T) {
		hub := NewHub()
		s := NewSession("u1", models.RoleEmployee)
		hub.Register(s)

		require.Equal(t, s, hub.Lookup("u1"))
	})

	t.Run("last registration wins", func(t *testing.T) {
		hub := NewHub()
		first := NewSession("u1", models.RoleEmployee)
		second := NewSession("u1", models.RoleEmployee)

		hub.Register(first)
		hub.Register(second)

		require.Equal(t, second, hub.Lookup("u1"))

		// The displaced session's channel is closed so its write loop exits.
		_, ok := <-first.Messages()
		assert.False(t, ok)
	})

	t.Run("stale disconnect does not evict the new session", func(t *testing.T) {
		hub := NewHub()
		first := NewSession("u1", models.RoleEmployee)
		second := NewSession("u1", models.RoleEmployee)

		hub.Register(first)
		hub.Register(second)
		hub.Unregister(first)

		require.Equal(t, second, hub.Lookup("u1"))
	})
}

func TestHubUnregister(t *testing.T) {
	t.Run("removes the session", func(t *testing.T) {
		hub := NewHub()
		s := NewSession("u1", models.RoleEmployee)
		hub.Register(s)
		hub.Unregister(s)

		assert.Nil(t, hub.Lookup("u1"))
	})

	t.Run("unknown session is a no-op", func(t *testing.T) {
		hub := NewHub()
		registered := NewSession("u1", models.RoleEmployee)
		hub.Register(registered)

		hub.Unregister(NewSession("u2", models.RoleEmployee))

		assert.Equal(t, registered, hub.Lookup("u1"))
	})
}

func TestSendToUser(t *testing.T) {
	t.Run("delivers to connected user", func(t *testing.T) {
		hub := NewHub()
		s := NewSession("u1", models.RoleEmployee)
		hub.Register(s)

		ok := hub.SendToUser("u1", models.NotifyRequestDecision, map[string]any{"status": models.StatusApproved})
		require.True(t, ok)

		got := drain(s)
		require.Len(t, got, 1)
		assert.Equal(t, models.NotifyRequestDecision, got[0].Type)
		assert.Equal(t, models.StatusApproved, got[0].Data["status"])
		assert.NotEmpty(t, got[0].ID)
		assert.False(t, got[0].Timestamp.IsZero())
	})

	t.Run("offline user returns false with no traffic", func(t *testing.T) {
		hub := NewHub()
		other := NewSession("u2", models.RoleEmployee)
		hub.Register(other)

		ok := hub.SendToUser("u1", models.NotifyRequestDecision, nil)

		assert.False(t, ok)
		assert.Empty(t, drain(other))
	})

	t.Run("send racing reconnects and disconnects never panics", func(t *testing.T) {
		hub := NewHub()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 200; i++ {
				s := NewSession("u1", models.RoleEmployee)
				hub.Register(s)
				go func() {
					for range s.Messages() {
					}
				}()
				hub.Unregister(s)
			}
		}()

		// Each send lands on a live, displaced or closed session depending
		// on timing; all of those must resolve to delivered or dropped.
		for i := 0; i < 1000; i++ {
			hub.SendToUser("u1", models.NotifyRequestDecision, nil)
		}
		<-done

		assert.Nil(t, hub.Lookup("u1"))
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		hub := NewHub()
		s := NewSession("u1", models.RoleEmployee)
		hub.Register(s)

		for i := 0; i < sendBuffer; i++ {
			require.True(t, hub.SendToUser("u1", models.NotifyNewRequest, nil))
		}
		assert.False(t, hub.SendToUser("u1", models.NotifyNewRequest, nil))
		assert.Len(t, drain(s), sendBuffer)
	})
}

func TestSendToRole(t *testing.T) {
	t.Run("delivers only to matching connected users", func(t *testing.T) {
		hub := NewHub()
		manager := NewSession("m1", models.RoleManager)
		employee := NewSession("e1", models.RoleEmployee)
		hub.Register(manager)
		hub.Register(employee)
		// m2 is a manager but never connects.

		n := hub.SendToRole(models.RoleManager, models.NotifyNewRequest, map[string]any{"employee_name": "Alice"})

		assert.Equal(t, 1, n)
		got := drain(manager)
		require.Len(t, got, 1)
		assert.Equal(t, models.NotifyNewRequest, got[0].Type)
		assert.Empty(t, drain(employee))
	})

	t.Run("no matching sessions delivers zero", func(t *testing.T) {
		hub := NewHub()
		hub.Register(NewSession("e1", models.RoleEmployee))

		assert.Equal(t, 0, hub.SendToRole(models.RoleManager, models.NotifyNewRequest, nil))
	})
}

func TestBroadcast(t *testing.T) {
	hub := NewHub()
	a := NewSession("u1", models.RoleEmployee)
	b := NewSession("u2", models.RoleManager)
	hub.Register(a)
	hub.Register(b)

	n := hub.Broadcast(models.NotifyNewRequest, nil)

	assert.Equal(t, 2, n)
	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}
