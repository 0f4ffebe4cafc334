package forecast

import (
	"log"
	"sync"
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// Result is a finished forecast with provenance.
type Result struct {
	Prediction  Prediction `json:"prediction"`
	Backend     string     `json:"backend"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Runner executes a forecaster off the tick loop. Submissions are
// non-blocking and coalescing: while a forecast is in flight, newer history
// replaces any queued request. Latest never blocks; before the first result
// it reports unavailable and callers fall back accordingly.
type Runner struct {
	f       Forecaster
	horizon int

	mu     sync.RWMutex
	latest Result
	ready  bool

	reqCh chan []model.LoadPoint
	stop  chan struct{}
	done  chan struct{}
}

func NewRunner(f Forecaster, horizon int) *Runner {
	return &Runner{
		f:       f,
		horizon: horizon,
		reqCh:   make(chan []model.LoadPoint, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the background worker.
func (r *Runner) Start() {
	go func() {
		defer close(r.done)
		for {
			select {
			case history := <-r.reqCh:
				pred, err := r.f.Forecast(history, r.horizon)
				if err != nil {
					log.Printf("[Forecast] %s: %v", r.f.Name(), err)
					continue
				}
				r.mu.Lock()
				r.latest = Result{Prediction: pred, Backend: r.f.Name(), GeneratedAt: time.Now()}
				r.ready = true
				r.mu.Unlock()
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop shuts the worker down and waits for it to exit.
func (r *Runner) Stop() {
	close(r.stop)
	<-r.done
}

// Submit hands history to the worker without blocking. If a request is
// already queued it is replaced by the newer history.
func (r *Runner) Submit(history []model.LoadPoint) {
	snapshot := make([]model.LoadPoint, len(history))
	copy(snapshot, history)

	for {
		select {
		case r.reqCh <- snapshot:
			return
		default:
			// Drain the stale queued request and retry with the fresh one.
			select {
			case <-r.reqCh:
			default:
			}
		}
	}
}

// Latest returns the most recent result, or ok=false when no forecast has
// completed yet.
func (r *Runner) Latest() (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.ready
}
