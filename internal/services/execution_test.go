package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"run-dispatch-service/internal/adapters/repositories"
	"run-dispatch-service/internal/domain"
)

func dispatchThreeStopRun(t *testing.T) (*repositories.MemoryStore, *domain.Run) {
	t.Helper()

	store := newTestStore(t)
	d := newTestDispatcher(store)

	run, _, err := d.Dispatch(context.Background(), []int64{10, 11, 12}, 5)
	if err != nil {
		t.Fatalf("setup dispatch: %v", err)
	}
	if len(run.Stops) != 3 {
		t.Fatalf("setup: expected 3 stops, got %d", len(run.Stops))
	}
	return store, run
}

func TestCompleteStopMarksStopOrderAndRun(t *testing.T) {
	ctx := context.Background()
	store, run := dispatchThreeStopRun(t)
	e := &Executor{Runs: store}

	// Complete all but the last stop.
	for _, s := range run.Stops[:2] {
		c, err := e.CompleteStop(ctx, run.ID, s.ID, 5)
		if err != nil {
			t.Fatalf("complete stop %d: %v", s.ID, err)
		}
		if c.Stop.Status != domain.StopCompleted {
			t.Fatalf("stop %d status = %s, want CONCLUIDA", s.ID, c.Stop.Status)
		}
		if c.Stop.CompletedAt == nil {
			t.Fatalf("stop %d has no completion timestamp", s.ID)
		}
		if c.RunStatus != domain.RunInProgress {
			t.Fatalf("run finished early at stop %d", s.ID)
		}
	}

	// The last completion finishes the run and its order.
	last := run.Stops[2]
	c, err := e.CompleteStop(ctx, run.ID, last.ID, 5)
	if err != nil {
		t.Fatalf("complete last stop: %v", err)
	}
	if c.RunStatus != domain.RunFinished {
		t.Fatalf("run status = %s, want FINALIZADA", c.RunStatus)
	}

	orders, err := store.GetOrders(ctx, []int64{last.OrderID})
	if err != nil {
		t.Fatalf("re-read order: %v", err)
	}
	if orders[0].Status != domain.OrderCompleted {
		t.Fatalf("order %d status = %s, want CONCLUIDO", last.OrderID, orders[0].Status)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("re-read run: %v", err)
	}
	if got.Status != domain.RunFinished {
		t.Fatalf("persisted run status = %s, want FINALIZADA", got.Status)
	}
}

func TestCompleteStopIdempotency(t *testing.T) {
	ctx := context.Background()
	store, run := dispatchThreeStopRun(t)
	e := &Executor{Runs: store}

	first := run.Stops[0]
	c, err := e.CompleteStop(ctx, run.ID, first.ID, 5)
	if err != nil {
		t.Fatalf("first completion: %v", err)
	}
	completedAt := *c.Stop.CompletedAt

	_, err = e.CompleteStop(ctx, run.ID, first.ID, 5)
	if !errors.Is(err, domain.ErrStopAlreadyCompleted) {
		t.Fatalf("expected ErrStopAlreadyCompleted, got %v", err)
	}

	// The retry changed nothing: status and timestamp survive.
	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("re-read run: %v", err)
	}
	for _, s := range got.Stops {
		if s.ID != first.ID {
			continue
		}
		if s.Status != domain.StopCompleted {
			t.Fatalf("stop status = %s after retry, want CONCLUIDA", s.Status)
		}
		if s.CompletedAt == nil || !s.CompletedAt.Equal(completedAt) {
			t.Fatalf("completion timestamp changed on retry: %v -> %v", completedAt, s.CompletedAt)
		}
	}
}

func TestCompleteStopRetryAfterRunFinished(t *testing.T) {
	// Retrying the completion that closed the run must still fail soft with
	// the already-completed error, not the run-state error.
	ctx := context.Background()
	store, run := dispatchThreeStopRun(t)
	e := &Executor{Runs: store}

	for _, s := range run.Stops {
		if _, err := e.CompleteStop(ctx, run.ID, s.ID, 5); err != nil {
			t.Fatalf("complete stop %d: %v", s.ID, err)
		}
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("re-read run: %v", err)
	}
	if got.Status != domain.RunFinished {
		t.Fatalf("run status = %s, want FINALIZADA", got.Status)
	}

	last := run.Stops[2]
	_, err = e.CompleteStop(ctx, run.ID, last.ID, 5)
	if !errors.Is(err, domain.ErrStopAlreadyCompleted) {
		t.Fatalf("retry of last stop: expected ErrStopAlreadyCompleted, got %v", err)
	}
}

func TestCompleteStopAllPermutationsFinishRun(t *testing.T) {
	perms := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	for _, perm := range perms {
		ctx := context.Background()
		store, run := dispatchThreeStopRun(t)
		e := &Executor{Runs: store}

		for i, idx := range perm {
			c, err := e.CompleteStop(ctx, run.ID, run.Stops[idx].ID, 5)
			if err != nil {
				t.Fatalf("perm %v: complete stop %d: %v", perm, idx, err)
			}

			wantFinished := i == len(perm)-1
			if wantFinished && c.RunStatus != domain.RunFinished {
				t.Fatalf("perm %v: run not FINALIZADA after last stop", perm)
			}
			if !wantFinished && c.RunStatus != domain.RunInProgress {
				t.Fatalf("perm %v: run finished after %d of 3 stops", perm, i+1)
			}
		}

		got, err := store.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("perm %v: re-read run: %v", perm, err)
		}
		if got.Status != domain.RunFinished {
			t.Fatalf("perm %v: final run status = %s, want FINALIZADA", perm, got.Status)
		}
	}
}

func TestCompleteStopDriverMismatch(t *testing.T) {
	ctx := context.Background()
	store, run := dispatchThreeStopRun(t)
	e := &Executor{Runs: store}

	_, err := e.CompleteStop(ctx, run.ID, run.Stops[0].ID, 6)
	if !errors.Is(err, domain.ErrDriverMismatch) {
		t.Fatalf("expected ErrDriverMismatch, got %v", err)
	}
}

func TestCompleteStopUnknownRunAndStop(t *testing.T) {
	ctx := context.Background()
	store, run := dispatchThreeStopRun(t)
	e := &Executor{Runs: store}

	if _, err := e.CompleteStop(ctx, 999, run.Stops[0].ID, 5); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := e.CompleteStop(ctx, run.ID, 999, 5); !errors.Is(err, domain.ErrStopNotFound) {
		t.Fatalf("expected ErrStopNotFound, got %v", err)
	}
}

func TestCompleteStopStrictSequential(t *testing.T) {
	ctx := context.Background()
	store, run := dispatchThreeStopRun(t)
	e := &Executor{Runs: store, StrictSequential: true}

	// Completing ordem 2 before ordem 1 is rejected under the strict policy.
	_, err := e.CompleteStop(ctx, run.ID, run.Stops[1].ID, 5)
	if !errors.Is(err, domain.ErrStopOutOfOrder) {
		t.Fatalf("expected ErrStopOutOfOrder, got %v", err)
	}

	// In sequence everything goes through.
	for _, s := range run.Stops {
		if _, err := e.CompleteStop(ctx, run.ID, s.ID, 5); err != nil {
			t.Fatalf("in-sequence completion of ordem %d: %v", s.Sequence, err)
		}
	}
}

func TestCompleteStopConcurrentRetries(t *testing.T) {
	// Many concurrent completions of the same stop: exactly one wins, the
	// rest observe the soft already-completed error. Run with -race.
	ctx := context.Background()
	store, run := dispatchThreeStopRun(t)
	e := &Executor{Runs: store}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CompleteStop(ctx, run.ID, run.Stops[0].ID, 5)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, domain.ErrStopAlreadyCompleted) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful completion, got %d", success)
	}
}
