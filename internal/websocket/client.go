// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package websocket

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256

	// Consoles only send control frames; anything larger is a misbehaving peer.
	maxInboundSize = 512
)

// clientIDCounter gives broadcasts a stable client order.
var clientIDCounter atomic.Uint64

// errClientData ends a session whose peer sent a data frame.
var errClientData = errors.New("alert stream is server-to-client only")

// Client is one console subscribed to the alert stream. The stream is
// one-way: the server sends alerts, the console sends only control frames
// (pong, close). A data frame from the console closes the session with
// 1003 (unsupported data).
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	// closeCode is sent in the close frame when the session ends from the
	// server side; set by the read loop before it unregisters.
	closeCode atomic.Int32
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	c.closeCode.Store(websocket.CloseGoingAway)
	return c
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Start runs the session until either side ends it.
func (c *Client) Start() {
	go c.writeLoop()
	go c.readLoop()
}

// readLoop services control frames and watches for the peer leaving.
func (c *Client) readLoop() {
	defer c.leave()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Control frames are handled inside NextReader.
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.RecordWSError("unexpected_close")
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		metrics.RecordWSError("client_data")
		logging.Debug().Err(errClientData).Uint64("client_id", c.id).Msg("closing websocket session")
		c.closeCode.Store(websocket.CloseUnsupportedData)
		return
	}
}

// leave unregisters from the hub, which closes c.send and lets writeLoop
// send the close frame. The hub may already be gone during shutdown.
func (c *Client) leave() {
	select {
	case c.hub.Unregister <- c:
	case <-time.After(writeWait):
		_ = c.conn.Close()
	}
}

// writeLoop sends queued alerts and keepalive pings. It owns every write
// to the connection.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.writeClose()
				return
			}
			if err := c.writeAlert(msg); err != nil {
				metrics.RecordWSError("write_failed")
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("failed to write websocket message")
				return
			}
			metrics.RecordWSMessageSent()

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeAlert(msg Message) error {
	data, err := MarshalMessage(msg)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) writeClose() {
	code := int(c.closeCode.Load())
	reason := "stream closed"
	if code == websocket.CloseUnsupportedData {
		reason = errClientData.Error()
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}
