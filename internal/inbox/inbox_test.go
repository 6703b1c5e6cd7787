package inbox

import (
	"testing"
	"time"

	"github.com/livinlefevreloca/queuedash/internal/testutil"
)

func TestInbox_FIFO(t *testing.T) {
	ib := New[int](4, 10*time.Millisecond, testutil.NewTestLogger().Logger())

	for i := 1; i <= 3; i++ {
		if !ib.Send(i) {
			t.Fatalf("send %d failed", i)
		}
	}

	got := ib.Drain()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", got)
	}
	if ib.Len() != 0 {
		t.Errorf("expected empty inbox after drain, got %d", ib.Len())
	}
}

func TestInbox_DropsWhenFull(t *testing.T) {
	logger := testutil.NewTestLogger()
	ib := New[string](1, 5*time.Millisecond, logger.Logger())

	if !ib.Send("a") {
		t.Fatal("first send should succeed")
	}

	start := time.Now()
	if ib.Send("b") {
		t.Fatal("second send should be dropped")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("send blocked for %v", elapsed)
	}

	stats := ib.Stats()
	if stats.DroppedCount != 1 {
		t.Errorf("expected 1 drop, got %d", stats.DroppedCount)
	}
	if !logger.HasWarning() {
		t.Error("expected a warning for the dropped message")
	}
}

func TestInbox_ZeroTimeoutNeverWaits(t *testing.T) {
	ib := New[int](0, 0, testutil.NewTestLogger().Logger())

	if ib.Send(1) {
		t.Error("unbuffered inbox without a receiver should drop")
	}
}

func TestInbox_TryReceiveEmpty(t *testing.T) {
	ib := New[int](1, 0, testutil.NewTestLogger().Logger())

	if _, ok := ib.TryReceive(); ok {
		t.Error("expected no message")
	}
}

func TestInbox_Stats(t *testing.T) {
	ib := New[int](3, 0, testutil.NewTestLogger().Logger())
	ib.Send(1)
	ib.Send(2)
	ib.TryReceive()

	stats := ib.Stats()
	if stats.TotalSent != 2 || stats.TotalReceived != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}
	if stats.CurrentDepth != 1 || stats.MaxDepthSeen != 2 || stats.Capacity != 3 {
		t.Errorf("unexpected depth stats: %+v", stats)
	}
}
