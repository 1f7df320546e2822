package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/observahq/observa/internal/ports"
)

// SSEBroadcaster fans run progress events out to Server-Sent Events
// subscribers. It implements ports.RunEventPublisher.
type SSEBroadcaster struct {
	mu          sync.RWMutex
	connections map[string]map[chan string]struct{} // runID -> set of channels
}

// NewSSEBroadcaster creates a new SSE broadcaster instance
func NewSSEBroadcaster() *SSEBroadcaster {
	return &SSEBroadcaster{
		connections: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe creates a new SSE connection for a run
func (b *SSEBroadcaster) Subscribe(runID string) chan string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan string, 10) // Buffer to prevent blocking

	if _, exists := b.connections[runID]; !exists {
		b.connections[runID] = make(map[chan string]struct{})
	}

	b.connections[runID][ch] = struct{}{}
	log.Printf("SSE: Client subscribed to run %s (total: %d)", runID, len(b.connections[runID]))

	return ch
}

// Unsubscribe removes an SSE connection
func (b *SSEBroadcaster) Unsubscribe(runID string, ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if connections, exists := b.connections[runID]; exists {
		delete(connections, ch)
		close(ch)

		if len(connections) == 0 {
			delete(b.connections, runID)
		}

		log.Printf("SSE: Client unsubscribed from run %s (remaining: %d)", runID, len(connections))
	}
}

// Publish sends a run event to every subscriber of its run. Slow clients
// whose buffers are full are skipped rather than blocking the run.
func (b *SSEBroadcaster) Publish(event ports.RunEvent) {
	b.mu.RLock()
	connections, exists := b.connections[event.RunID]
	b.mu.RUnlock()

	if !exists || len(connections) == 0 {
		return // No subscribers
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Printf("SSE: Failed to marshal run event: %v", err)
		return
	}

	sseEvent := fmt.Sprintf("data: %s\n\n", string(jsonData))

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range connections {
		select {
		case ch <- sseEvent:
		default:
			log.Printf("SSE: Channel buffer full for run %s", event.RunID)
		}
	}
}

// GetConnectionCount returns the number of active connections for a run
func (b *SSEBroadcaster) GetConnectionCount(runID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.connections[runID])
}
