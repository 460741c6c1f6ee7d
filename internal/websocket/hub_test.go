package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastToUserDelivers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, 7)
	hub.Register <- client

	// Registration is processed asynchronously; keep broadcasting until the
	// subscription is live.
	message := []byte(`{"action":"task_created"}`)
	deadline := time.After(2 * time.Second)
	for {
		hub.BroadcastToUser(7, message)
		select {
		case got := <-client.Send:
			assert.Equal(t, message, got)
			return
		case <-deadline:
			t.Fatal("client never received the broadcast")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestBroadcastToUserDoesNotReachOtherUsers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	mine := NewClient(hub, nil, 1)
	other := NewClient(hub, nil, 2)
	hub.Register <- mine
	hub.Register <- other

	message := []byte(`{"action":"task_created"}`)
	deadline := time.After(2 * time.Second)
	for {
		hub.BroadcastToUser(1, message)
		select {
		case <-mine.Send:
			// Delivered to the owner; the other user saw nothing.
			assert.Empty(t, other.Send)
			return
		case <-deadline:
			t.Fatal("owner never received the broadcast")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

// Task mutations broadcast from request goroutines while Run registers and
// unregisters clients; the hub must tolerate that concurrency (run with
// -race).
func TestBroadcastToUserConcurrentWithRegister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				client := NewClient(hub, nil, int64(n%3))
				hub.Register <- client
				if j%2 == 0 {
					hub.Unregister <- client
				}
			}
		}(i)
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hub.BroadcastToUser(1, []byte(`{"action":"task_updated"}`))
			}
		}()
	}
	wg.Wait()
}

func TestBroadcastToUserWithoutRunLoop(t *testing.T) {
	// Services are constructed with a hub in unit tests without starting
	// Run; broadcasting to a user with no subscribers must be a no-op.
	hub := NewHub()
	require.NotPanics(t, func() {
		hub.BroadcastToUser(42, []byte(`{"action":"task_created"}`))
	})
}
