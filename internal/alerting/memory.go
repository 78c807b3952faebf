package alerting

import (
	"context"
	"sync"
)

// Recorder keeps alerts in memory
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Alert(_ context.Context, a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

// Alerts returns a copy of everything recorded so far
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}
