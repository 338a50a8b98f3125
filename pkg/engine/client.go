package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	plog "github.com/lwm2m-bridge/lwm2m-go/pkg/log"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Client errors.
var (
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

type reply struct {
	path model.Address
	resp wire.Response
}

// Client sends request frames over one device connection and matches the
// response frames to them.
type Client struct {
	conn   io.ReadWriteCloser
	framer *Framer

	sessionID string
	endpoint  string
	capture   plog.Logger
	logger    *slog.Logger

	nextMsgID atomic.Uint32

	pendingMu sync.Mutex
	pending   map[uint32]chan reply

	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// NewClient starts reading response frames from conn.
func NewClient(conn io.ReadWriteCloser, sessionID, endpoint string) *Client {
	c := &Client{
		conn:      conn,
		framer:    NewFramer(conn),
		sessionID: sessionID,
		endpoint:  endpoint,
		capture:   plog.NoopLogger{},
		logger:    slog.Default(),
		pending:   make(map[uint32]chan reply),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// SetProtocolLogger sets the frame capture logger. Call before the first Send.
func (c *Client) SetProtocolLogger(l plog.Logger) {
	c.capture = plog.OrNoop(l)
}

// SetLogger sets the operational logger. Call before the first Send.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Done is closed when the connection ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, once Done is closed.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close closes the connection and fails all waiting requests.
func (c *Client) Close() error {
	c.shutdown(ErrClientClosed)
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		_ = c.conn.Close()

		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		close(c.done)
		c.pendingMu.Unlock()
	})
}

// Send writes req and waits for its response or for ctx to end.
func (c *Client) Send(ctx context.Context, req wire.Request) (wire.Response, error) {
	msgID := c.nextMsgID.Add(1)
	data, err := wire.EncodeRequest(msgID, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan reply, 1)
	c.pendingMu.Lock()
	select {
	case <-c.done:
		c.pendingMu.Unlock()
		return nil, c.err
	default:
	}
	c.pending[msgID] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, msgID)
		c.pendingMu.Unlock()
	}()

	if err := c.framer.WriteFrame(data); err != nil {
		c.shutdown(err)
		return nil, err
	}
	c.logFrame(plog.DirectionOut, req.Path(), msgID, len(data))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-ch:
		if !ok {
			return nil, c.Err()
		}
		if r.path != req.Path() {
			c.logger.Debug("response path differs from request", "endpoint", c.endpoint, "request", req.Path(), "response", r.path)
		}
		return r.resp, nil
	}
}

// HandleResponse delivers a decoded response to the request with msgID.
func (c *Client) HandleResponse(msgID uint32, path model.Address, resp wire.Response) error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	ch, ok := c.pending[msgID]
	if !ok {
		return fmt.Errorf("%w: message %d", ErrUnexpectedReply, msgID)
	}
	select {
	case ch <- reply{path: path, resp: resp}:
	default:
	}
	return nil
}

func (c *Client) readLoop() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				err = ErrClientClosed
			}
			c.shutdown(err)
			return
		}

		msgID, path, resp, err := wire.DecodeResponse(data)
		c.logFrame(plog.DirectionIn, path, msgID, len(data))
		if err != nil {
			c.capture.Log(plog.NewErrorEvent(c.sessionID, c.endpoint, path.String(), plog.LayerEngine, "decode", err))
			c.logger.Warn("dropping response frame", "endpoint", c.endpoint, "msgID", msgID, "error", err)
			continue
		}
		if err := c.HandleResponse(msgID, path, resp); err != nil {
			c.logger.Debug("late or unknown response", "endpoint", c.endpoint, "msgID", msgID, "error", err)
		}
	}
}

func (c *Client) logFrame(dir plog.Direction, path model.Address, msgID uint32, size int) {
	ev := plog.Event{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		Endpoint:  c.endpoint,
		Direction: dir,
		Layer:     plog.LayerEngine,
		Category:  plog.CategoryMessage,
		Frame:     &plog.FrameEvent{MessageID: msgID, Size: LengthPrefixSize + size},
	}
	if path.IsValid() {
		ev.Path = path.String()
	}
	c.capture.Log(ev)
}
