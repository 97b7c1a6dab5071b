package mixer

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// signalingClient wraps the websocket to the mixer's signaling endpoint.
// Writes are serialized behind a mutex; reads happen on a single pump
// goroutine started by run.
type signalingClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closeOnce sync.Once
}

// dialSignaling opens the websocket within the handshake timeout.
func dialSignaling(rawURL string, timeout time.Duration) (*signalingClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.Dial(rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial signaling %q: %w", rawURL, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "dialSignaling",
		"url":      rawURL,
	}).Debug("Signaling channel open")
	return &signalingClient{conn: conn}, nil
}

// send writes one enveloped message.
func (c *signalingClient) send(msgType MessageType, payload interface{}) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %q message: %w", msgType, err)
	}
	return nil
}

// run pumps incoming messages into handler until the connection closes,
// then reports the terminal error to onClosed. It must be called at most
// once.
func (c *signalingClient) run(handler func(MessageType, json.RawMessage), onClosed func(error)) {
	go func() {
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				onClosed(err)
				return
			}
			msgType, payload, err := unmarshalEnvelope(data)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "run",
					"error":    err,
				}).Warn("Dropping malformed signaling message")
				continue
			}
			handler(msgType, payload)
		}
	}()
}

// close shuts the websocket down. Safe to call more than once.
func (c *signalingClient) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}
