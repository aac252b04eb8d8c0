// Package streamstatus broadcasts note query pipeline stage transitions
// (GUARDRAIL_IN, RETRIEVE, SYNTHESIZE, GUARDRAIL_OUT, ASSEMBLE, DONE) to any
// websocket client subscribed to a request ID.
package streamstatus

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Stage names the pipeline state a request has entered.
type Stage string

const (
	StageGuardrailIn  Stage = "guardrail_in"
	StageRetrieve     Stage = "retrieve"
	StageSynthesize   Stage = "synthesize"
	StageGuardrailOut Stage = "guardrail_out"
	StageAssemble     Stage = "assemble"
	StageDone         Stage = "done"
)

// Event is one stage transition, timestamped by the caller since this
// package must not call time.Now() itself in workflow contexts.
type Event struct {
	RequestID string `json:"request_id"`
	Stage     Stage  `json:"stage"`
	At        string `json:"at"`
}

// Broadcaster fans out stage events to the websocket connections subscribed
// to each request ID. A request with no subscriber is a no-op send, not an
// error: streaming status is an optional, best-effort extension.
type Broadcaster struct {
	mutex       sync.RWMutex
	subscribers map[string][]*websocket.Conn
}

// New builds an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string][]*websocket.Conn)}
}

// Subscribe registers conn to receive stage events for requestID. The
// caller owns conn's lifecycle; Unsubscribe must be called when it closes.
func (b *Broadcaster) Subscribe(requestID string, conn *websocket.Conn) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.subscribers[requestID] = append(b.subscribers[requestID], conn)
}

// Unsubscribe removes conn from requestID's subscriber list.
func (b *Broadcaster) Unsubscribe(requestID string, conn *websocket.Conn) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	conns := b.subscribers[requestID]
	for i, c := range conns {
		if c == conn {
			b.subscribers[requestID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(b.subscribers[requestID]) == 0 {
		delete(b.subscribers, requestID)
	}
}

// Publish sends a stage event to every subscriber of requestID. Write
// failures just drop that one connection's delivery; they never propagate
// to the pipeline.
func (b *Broadcaster) Publish(requestID string, stage Stage, at time.Time) {
	b.mutex.RLock()
	conns := append([]*websocket.Conn{}, b.subscribers[requestID]...)
	b.mutex.RUnlock()

	event := Event{RequestID: requestID, Stage: stage, At: at.Format(time.RFC3339Nano)}
	for _, conn := range conns {
		_ = conn.WriteJSON(event)
	}
}
