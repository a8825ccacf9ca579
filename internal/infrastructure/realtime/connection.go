package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	sendBuffer   = 128
	maxFrameSize = 1 << 16

	// PingPeriod is how often the server pings an idle socket.
	PingPeriod = 30 * time.Second
	// ReadTimeout is how long a socket may stay silent, pongs included.
	ReadTimeout = 60 * time.Second
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrBufferExceeded   = errors.New("connection buffer exceeded")
)

// Connection is one websocket session. Writes are queued and flushed by a
// single writer goroutine; reads happen in Listen on the caller's goroutine.
// A user may hold several connections at once.
type Connection struct {
	ID     string
	UserID string

	ws   *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func NewConnection(userID string, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:     uuid.NewString(),
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Start launches the writer. It must be called exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send queues payload as one text frame. A client too slow to drain its
// queue is disconnected rather than allowed to grow it.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrBufferExceeded
	}
}

// Listen reads client frames until the socket fails or closes, handing each
// text frame to onFrame. onPong runs for every pong; any traffic extends
// the read deadline by ReadTimeout. The returned error is nil for a normal
// close by either side.
func (c *Connection) Listen(onFrame func([]byte), onPong func()) error {
	c.ws.SetReadLimit(maxFrameSize)
	extend := func() error { return c.ws.SetReadDeadline(time.Now().Add(ReadTimeout)) }
	_ = extend()
	c.ws.SetPongHandler(func(string) error {
		if onPong != nil {
			onPong()
		}
		return extend()
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
				errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
				return err
			}
		}
		_ = extend()
		if kind == websocket.TextMessage {
			onFrame(data)
		}
	}
}

// Done is closed once the connection is shut.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and tears the socket down. Safe to call more
// than once; send is left open so a racing Send cannot panic.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			err = c.write(websocket.TextMessage, msg)
		case <-ticker.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			c.Close(websocket.CloseAbnormalClosure, "write failed")
			return
		}
	}
}

func (c *Connection) write(kind int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, payload)
}
