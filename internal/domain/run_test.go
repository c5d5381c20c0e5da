package domain

import (
	"testing"
	"time"
)

func TestRunAllStopsCompleted(t *testing.T) {
	run := &Run{
		Stops: []Stop{
			{ID: 1, Sequence: 1, Status: StopCompleted},
			{ID: 2, Sequence: 2, Status: StopPending},
		},
	}

	if run.AllStopsCompleted() {
		t.Fatal("run with a pending stop reported as complete")
	}

	run.Stops[1].Status = StopCompleted
	if !run.AllStopsCompleted() {
		t.Fatal("run with all stops done reported as incomplete")
	}

	empty := &Run{}
	if empty.AllStopsCompleted() {
		t.Fatal("run with no stops must not be complete")
	}
}

func TestRunNextPendingSequence(t *testing.T) {
	run := &Run{
		Stops: []Stop{
			{ID: 1, Sequence: 1, Status: StopCompleted},
			{ID: 2, Sequence: 2, Status: StopPending},
			{ID: 3, Sequence: 3, Status: StopPending},
		},
	}

	if got := run.NextPendingSequence(); got != 2 {
		t.Fatalf("next pending = %d, want 2", got)
	}

	run.Stops[1].Status = StopCompleted
	run.Stops[2].Status = StopCompleted
	if got := run.NextPendingSequence(); got != 0 {
		t.Fatalf("next pending = %d, want 0 when all done", got)
	}
}

func TestOrderEligible(t *testing.T) {
	o := &Order{Status: OrderAwaitingRoute}
	if !o.Eligible() {
		t.Fatal("AGUARDANDO_ROTA order must be eligible")
	}

	o.Status = OrderInRoute
	if o.Eligible() {
		t.Fatal("EM_ROTA order must not be eligible")
	}
}

func TestDriverAvailable(t *testing.T) {
	d := &Driver{Status: DriverActive}
	if !d.Available() {
		t.Fatal("ATIVO driver must be available")
	}

	d.Status = DriverInactive
	if d.Available() {
		t.Fatal("INATIVO driver must not be available")
	}
}

func TestStopCompletionTimestampShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	s := Stop{Status: StopCompleted, CompletedAt: &now}
	if s.CompletedAt == nil || !s.CompletedAt.Equal(now) {
		t.Fatal("completed stop must carry its completion timestamp")
	}
}
