package probe_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/inclusion/business/core/probe"
	"github.com/ethereum/go-ethereum/core/types"
)

func Test_WatcherTrigger(t *testing.T) {
	sequencer := newTestNode(t, nodeConfig{includeAfter: 1, status: types.ReceiptStatusSuccessful})
	builder := newTestNode(t, nodeConfig{includeAfter: 1, status: types.ReceiptStatusSuccessful})
	ingress := newTestNode(t, nodeConfig{})

	p := newTestProbe(t, builder, sequencer, ingress, nil)

	w := probe.NewWatcher(probe.WatcherConfig{
		Probe:  p,
		Period: time.Hour,
	})

	result := w.Trigger(context.Background(), nil, nil)
	if result.Error != "" {
		t.Fatalf("\t%s \tShould be able to trigger a run: %s", failed, result.Error)
	}
	t.Logf("\t%s \tShould be able to trigger a run.", success)

	if result.Outcome.Verdict != probe.VerdictConsistent {
		t.Fatalf("\t%s \tShould render a consistent verdict: got %q", failed, result.Outcome.Verdict)
	}

	status := w.Status()
	if status.Counts.Runs != 1 {
		t.Errorf("\t%s \tShould count the triggered run: got %d", failed, status.Counts.Runs)
	}
	if status.Counts.Consistent != 1 {
		t.Errorf("\t%s \tShould count the consistent verdict: got %d", failed, status.Counts.Consistent)
	}
	if len(status.History) != 1 {
		t.Fatalf("\t%s \tShould keep the run in the history: got %d entries", failed, len(status.History))
	}
	if status.Sender != p.Sender() {
		t.Errorf("\t%s \tShould report the probe's sender: got %s, exp %s", failed, status.Sender, p.Sender())
	}
}

func Test_WatcherPeriodic(t *testing.T) {
	sequencer := newTestNode(t, nodeConfig{includeAfter: 0, status: types.ReceiptStatusSuccessful})
	builder := newTestNode(t, nodeConfig{includeAfter: 0, status: types.ReceiptStatusSuccessful})
	ingress := newTestNode(t, nodeConfig{})

	p := newTestProbe(t, builder, sequencer, ingress, nil)

	w := probe.NewWatcher(probe.WatcherConfig{
		Probe:      p,
		Period:     100 * time.Millisecond,
		RunHistory: 2,
	})

	w.Run()
	defer w.Shutdown()

	// Wait for the loop to complete a few runs.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if w.Status().Counts.Runs >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("\t%s \tShould complete three runs within the deadline: got %d", failed, w.Status().Counts.Runs)
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Logf("\t%s \tShould complete three runs within the deadline.", success)

	status := w.Status()
	if status.Counts.Consistent < 3 {
		t.Errorf("\t%s \tShould render consistent verdicts for every run: got %d", failed, status.Counts.Consistent)
	}
	if len(status.History) != 2 {
		t.Errorf("\t%s \tShould cap the history at the configured limit: got %d entries", failed, len(status.History))
	}
	if status.LastRun.IsZero() {
		t.Errorf("\t%s \tShould record the time of the last run.", failed)
	}
}

func Test_WatcherShutdown(t *testing.T) {
	sequencer := newTestNode(t, nodeConfig{includeAfter: never})
	builder := newTestNode(t, nodeConfig{includeAfter: never})
	ingress := newTestNode(t, nodeConfig{})

	p := newTestProbe(t, builder, sequencer, ingress, nil)

	w := probe.NewWatcher(probe.WatcherConfig{
		Probe:  p,
		Period: 50 * time.Millisecond,
	})

	w.Run()

	// Let the loop start a run that will sit in its polling window, then
	// make sure shutdown does not wait out the full run deadline.
	time.Sleep(120 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Logf("\t%s \tShould shut down without waiting out the run deadline.", success)
	case <-time.After(1 * time.Second):
		t.Fatalf("\t%s \tShould shut down without waiting out the run deadline.", failed)
	}
}
