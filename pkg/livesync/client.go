package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kaiwa/models"
)

// Client keeps a View in sync with a chat server: one seed read over HTTP,
// then the websocket insert feed merged in. Close releases the subscription
// and freezes the view.
type Client struct {
	baseURL string
	roomID  string
	http    *http.Client
	view    *View

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}

	// OnChange, when set before Open, is called after every view mutation.
	OnChange func()
}

func NewClient(baseURL, roomID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		roomID:  roomID,
		http:    &http.Client{Timeout: 15 * time.Second},
		view:    NewView(),
	}
}

// View exposes the rendered sequence the client maintains.
func (c *Client) View() *View { return c.view }

// Open subscribes to the insert feed, seeds the view with one ordered read,
// and starts merging feed events. The subscription is opened before the seed
// so nothing inserted in between is missed; the view deduplicates the overlap.
func (c *Client) Open(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.feedURL(), nil)
	if err != nil {
		c.view.Fail(err)
		return fmt.Errorf("open feed: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.mu.Unlock()

	if err := c.seed(ctx); err != nil {
		conn.Close()
		close(c.done)
		c.view.Fail(err)
		return err
	}
	c.notify()

	go c.readLoop(conn)
	return nil
}

// Close tears the client down: the feed is released and the view stops
// mutating. Safe to call once after a successful Open.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(3 * time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	c.view.Close()
}

func (c *Client) seed(ctx context.Context) error {
	u := c.baseURL + "/api/messages?room_id=" + url.QueryEscape(c.roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("seed read: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("seed read: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var body struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("seed decode: %w", err)
	}
	c.view.Seed(body.Messages)
	return nil
}

type feedEvent struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		done := c.done
		c.mu.Unlock()
		close(done)
	}()
	for {
		var ev feedEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if c.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.view.Fail(err)
			c.notify()
			return
		}
		switch ev.Type {
		case "insert":
			c.view.Apply(ev.Message)
			c.notify()
		case "reset":
			// The server dropped this subscriber as a slow consumer and will
			// close the socket. Reconnect, then re-seed to cover any gap;
			// the view merge discards rows it already holds.
			conn.Close()
			next, err := c.reconnect()
			if err != nil {
				if !c.isClosed() {
					log.Printf("[livesync] reconnect after reset failed: %v", err)
					c.view.Fail(err)
					c.notify()
				}
				return
			}
			conn = next
			c.notify()
		}
	}
}

func (c *Client) reconnect() (*websocket.Conn, error) {
	if c.isClosed() {
		return nil, fmt.Errorf("client closed")
	}
	conn, _, err := websocket.DefaultDialer.Dial(c.feedURL(), nil)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, fmt.Errorf("client closed")
	}
	c.conn = conn
	c.mu.Unlock()
	if err := c.seed(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) notify() {
	if c.OnChange != nil {
		c.OnChange()
	}
}

func (c *Client) feedURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/messages?room_id=" + url.QueryEscape(c.roomID)
}
