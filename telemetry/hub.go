// Package telemetry carries SCP/outer-search progress events out of the
// synchronous engine core to any number of dashboard subscribers,
// without the core itself depending on who (if anyone) is watching.
// The core stays single-threaded and synchronous per the engine's
// concurrency model; telemetry is purely an observational side channel.
package telemetry

import (
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// Event is one progress update: which SolutionPoint reported it, what
// phase of the pipeline it came from, and the trust-region/objective
// state at that moment.
type Event struct {
	PointID     int
	Phase       string
	Iteration   int
	TrustRegion float64
	Objective   float64
	Timestamp   time.Time
}

// Hub fans a single internal event stream out to any number of
// subscribers via channerics.Broadcast, the same primitive the
// teacher's view builder uses to fan a data-model channel out to
// multiple views.
type Hub struct {
	source chan Event
	done   <-chan struct{}
}

// NewHub returns a Hub that stops accepting/delivering events once done
// is closed.
func NewHub(done <-chan struct{}) *Hub {
	return &Hub{
		source: make(chan Event, 256),
		done:   done,
	}
}

// Publish records an event. It never blocks the caller: telemetry is
// best-effort, so an event is dropped rather than stalling the engine's
// synchronous SCP loop if the buffer is full.
func (h *Hub) Publish(e Event) {
	select {
	case h.source <- e:
	case <-h.done:
	default:
	}
}

// Subscribe returns n independent event channels, each receiving every
// event published after Subscribe is called.
func (h *Hub) Subscribe(n int) []<-chan Event {
	return channerics.Broadcast(h.done, h.source, n)
}
