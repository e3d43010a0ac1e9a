package probe

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Defaults applied when the watcher configuration leaves these unset.
const (
	defaultRunPeriod  = 30 * time.Second
	defaultRunHistory = 32
)

// WatcherConfig represents the configuration required to construct
// a Watcher.
type WatcherConfig struct {
	Probe      *Probe
	Period     time.Duration
	RunHistory int
}

// Counts accumulates verdict totals across runs.
type Counts struct {
	Runs       int
	Consistent int
	Divergent  int
	Incomplete int
	Failed     int
}

// RunResult pairs the outcome of a run with the error that ended it, if any.
type RunResult struct {
	Outcome Outcome
	Error   string
}

// Status is a point in time snapshot of what the watcher has observed.
type Status struct {
	Sender  common.Address
	LastRun time.Time
	Counts  Counts
	History []RunResult
}

// =============================================================================

// Watcher executes the probe on a fixed period and keeps a rolling history
// of outcomes for inspection.
type Watcher struct {
	probe     *Probe
	period    time.Duration
	limit     int
	evHandler EventHandler

	wg     sync.WaitGroup
	shut   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	// runMu serializes runs so a trigger and a periodic run never race
	// for the sender's nonce.
	runMu sync.Mutex

	mu      sync.RWMutex
	lastRun time.Time
	counts  Counts
	history []RunResult
}

// NewWatcher constructs a Watcher for the specified probe. Call Run to
// start the periodic verification loop.
func NewWatcher(cfg WatcherConfig) *Watcher {
	period := cfg.Period
	if period <= 0 {
		period = defaultRunPeriod
	}

	limit := cfg.RunHistory
	if limit <= 0 {
		limit = defaultRunHistory
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		probe:     cfg.Probe,
		period:    period,
		limit:     limit,
		evHandler: cfg.Probe.evHandler,
		shut:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run starts the periodic verification loop. The first run fires after a
// full period so a freshly started service has time to settle.
func (w *Watcher) Run() {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		w.evHandler("watcher: run: started: period[%s]", w.period)

		ticker := time.NewTicker(w.period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.execute(w.ctx, w.probe.cfg.Value, w.probe.cfg.Recipient)
			case <-w.shut:
				return
			}
		}
	}()
}

// Shutdown stops the periodic loop, cancels an in flight run and waits
// for it to finish.
func (w *Watcher) Shutdown() {
	w.evHandler("watcher: shutdown: started")
	defer w.evHandler("watcher: shutdown: completed")

	close(w.shut)
	w.cancel()
	w.wg.Wait()
}

// Trigger executes a verification run immediately. A nil value or recipient
// falls back to the probe's configured transfer. Trigger waits for any run
// already in flight before starting.
func (w *Watcher) Trigger(ctx context.Context, value *big.Int, recipient *common.Address) RunResult {
	v := w.probe.cfg.Value
	if value != nil {
		v = value
	}

	to := w.probe.cfg.Recipient
	if recipient != nil {
		to = *recipient
	}

	return w.execute(ctx, v, to)
}

// Status returns a snapshot of the watcher's counters and recent history,
// most recent run first.
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	history := make([]RunResult, len(w.history))
	for i, result := range w.history {
		history[len(w.history)-1-i] = result
	}

	return Status{
		Sender:  w.probe.sender,
		LastRun: w.lastRun,
		Counts:  w.counts,
		History: history,
	}
}

// =============================================================================

// execute performs one verification run and folds the result into the
// watcher state. Runs never overlap so nonces stay ordered.
func (w *Watcher) execute(ctx context.Context, value *big.Int, recipient common.Address) RunResult {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	outcome, err := w.probe.RunTransfer(ctx, value, recipient)

	result := RunResult{Outcome: outcome}
	if err != nil {
		result.Error = err.Error()
		w.evHandler("watcher: run: ERROR: %s", err)
	}

	w.record(result)

	return result
}

// record folds a run result into the counters and rolling history.
func (w *Watcher) record(result RunResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now().UTC()
	w.counts.Runs++

	switch {
	case result.Error != "":
		w.counts.Failed++
	case result.Outcome.Verdict == VerdictConsistent:
		w.counts.Consistent++
	case result.Outcome.Verdict == VerdictDivergent:
		w.counts.Divergent++
	default:
		w.counts.Incomplete++
	}

	w.history = append(w.history, result)
	if len(w.history) > w.limit {
		w.history = w.history[len(w.history)-w.limit:]
	}
}
