package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Client is one live-channel connection feeding an Inbox.
type Client struct {
	conn  *websocket.Conn
	inbox *Inbox
	done  chan struct{}
}

// Dial connects to the service's /ws endpoint, authenticates with the
// bearer token and starts reading notifications into the inbox. The wsURL
// should use the ws or wss scheme (e.g. ws://localhost:8080/ws).
func Dial(ctx context.Context, wsURL, token, userID string, inbox *Inbox) (*Client, error) {
	header := http.Header{}
	header.Set("X-Auth-Token", token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connecting live channel (%d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("connecting live channel: %w", err)
	}

	auth := map[string]string{
		"type":    "authenticate",
		"user_id": userID,
	}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending authenticate frame: %w", err)
	}

	c := &Client{
		conn:  conn,
		inbox: inbox,
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var n Notification
		if err := c.conn.ReadJSON(&n); err != nil {
			return
		}
		c.inbox.OnReceive(n)
	}
}

// Done is closed when the connection drops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Inbox returns the inbox this client feeds.
func (c *Client) Inbox() *Inbox {
	return c.inbox
}

func (c *Client) Close() error {
	return c.conn.Close()
}
