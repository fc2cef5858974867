// Package status broadcasts engine events (asset loads, clip switches,
// errors) to viewer clients over websockets. Events are fire-and-forget;
// with no clients connected they only cost a channel send.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	KindInfo  = "info"
	KindError = "error"
	KindAnim  = "anim"
)

type Event struct {
	Kind    string
	Message string
	Time    time.Time
	Model   uint32 `json:",omitempty"`
	Clip    string `json:",omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// NewClient adopts an upgraded websocket connection and starts streaming
// events to it, beginning with the most recent one.
func NewClient(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 32)}
	registerClient(c)
	go c.writePump()
	globalLock.Lock()
	defer globalLock.Unlock()
	if lastMessage != nil {
		c.send <- lastMessage
	}
}

var eventBroadcast chan *Event
var broadcastList map[*client]bool
var globalLock sync.Mutex
var lastMessage []byte

func registerClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	broadcastList[c] = true
}

func unregisterClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	delete(broadcastList, c)
}

func init() {
	eventBroadcast = make(chan *Event, 16)
	broadcastList = make(map[*client]bool)
	go func() {
		for ev := range eventBroadcast {
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[status] marshal error: %v", err)
				continue
			}
			globalLock.Lock()
			lastMessage = data
			for c := range broadcastList {
				select {
				case c.send <- data:
				default: // slow client, drop the event
				}
			}
			globalLock.Unlock()
		}
	}()
}

func publish(ev *Event) {
	ev.Time = time.Now()
	select {
	case eventBroadcast <- ev:
	default: // nobody is draining fast enough, drop rather than stall a frame
	}
}

func Infof(format string, args ...interface{}) {
	publish(&Event{Kind: KindInfo, Message: fmt.Sprintf(format, args...)})
}

func Errorf(format string, args ...interface{}) {
	publish(&Event{Kind: KindError, Message: fmt.Sprintf(format, args...)})
}

// Animf reports an animation state change on a model.
func Animf(model uint32, clip string, format string, args ...interface{}) {
	publish(&Event{
		Kind:    KindAnim,
		Message: fmt.Sprintf(format, args...),
		Model:   model,
		Clip:    clip,
	})
}
