// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

// Package relay is Funnel's outbound Nostr relay client: a thin
// WebSocket wrapper that sends REQ/CLOSE frames and decodes EVENT/EOSE/
// NOTICE/OK envelopes. It owns only the wire protocol; reconnection,
// backoff, and the state machine around it live in internal/ingest
// (spec §4.3). Grounded on the teacher's outbound-websocket dial pattern
// for Plex (internal/sync/plex_websocket.go), adapted from a Plex
// notification socket to a Nostr relay subscription socket.
package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/andotherstuff/funnel/internal/nostr"
)

// ErrMalformedFrame wraps a frame that failed to decode as a known
// envelope shape. It is never a connection-level error: the caller should
// log it, count it, and keep reading (spec §7).
var ErrMalformedFrame = errors.New("relay: malformed frame")

// KeepaliveInterval is how often Client sends an application-level ping and
// the base unit the read deadline is derived from (spec §4.3: "absence of
// any frame for the keepalive interval triggers reconnection").
const KeepaliveInterval = 30 * time.Second

// Client is a single WebSocket connection to one relay. It is not
// reconnect-aware; callers that need reconnection construct a new Client
// per connection attempt (spec §4.3's Connecting state).
type Client struct {
	url  string
	conn *websocket.Conn
}

// Dial opens a WebSocket connection to relayURL. The caller owns the
// returned Client's lifecycle and must call Close when done with it.
func Dial(ctx context.Context, relayURL string) (*Client, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("relay url scheme must be ws or wss, got %q", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, relayURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial relay (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * KeepaliveInterval))
	})
	if err := conn.SetReadDeadline(time.Now().Add(2 * KeepaliveInterval)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set initial read deadline: %w", err)
	}

	return &Client{url: u.String(), conn: conn}, nil
}

// NewSubscriptionID returns an opaque subscription id, unique per
// connection and well within the 64-character cap the base protocol
// allows (spec §7: "Subscription IDs are opaque, unique per connection,
// short").
func NewSubscriptionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate subscription id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Subscribe sends a REQ frame for subID with the given filter.
func (c *Client) Subscribe(subID string, filter nostr.Filter) error {
	msg, err := nostr.ReqMessage(subID, filter)
	if err != nil {
		return fmt.Errorf("build REQ message: %w", err)
	}
	return c.writeText(msg)
}

// Unsubscribe sends a CLOSE frame for subID. It does not close the
// underlying connection; callers that are tearing down the connection
// entirely should call Close as well.
func (c *Client) Unsubscribe(subID string) error {
	msg, err := nostr.CloseMessage(subID)
	if err != nil {
		return fmt.Errorf("build CLOSE message: %w", err)
	}
	return c.writeText(msg)
}

func (c *Client) writeText(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// ReadEnvelope blocks until a frame arrives, the read deadline elapses
// with no frame (spec §4.3's liveness check), or the connection fails. A
// non-nil error wrapping ErrMalformedFrame means the socket is still
// healthy and the caller should simply skip the frame and read again;
// any other error means the connection is gone and the caller should
// reconnect (spec §7).
func (c *Client) ReadEnvelope() (*nostr.Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	env, err := nostr.ParseEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return env, nil
}

// Ping sends an application-level ping frame. The relay's pong response
// (handled in the PongHandler installed by Dial) pushes the read deadline
// forward; a connection that never responds will time out ReadEnvelope
// after 2×KeepaliveInterval of silence.
func (c *Client) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

// Close sends a normal-closure control frame and releases the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}
