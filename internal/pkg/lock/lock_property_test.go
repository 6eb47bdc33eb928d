// Property-based tests for serialized access to contested entities.
package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestSerializedPoolMutationProperty checks that concurrent read-modify-write
// sequences against the same (kind, id) key are equivalent to sequential
// execution: no subtraction from a shared pool is ever lost.
func TestSerializedPoolMutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialHealth := rapid.Int64Range(10000, 1000000).Draw(t, "initialHealth")
		numAttackers := rapid.IntRange(2, 20).Draw(t, "numAttackers")

		hits := make([]int64, numAttackers)
		expected := initialHealth
		for i := range hits {
			hits[i] = rapid.Int64Range(1, 500).Draw(t, "damage")
			expected -= hits[i]
		}

		bossID := rapid.Int64Range(1, 7).Draw(t, "bossID")
		el := New()

		health := initialHealth
		var wg sync.WaitGroup
		wg.Add(numAttackers)
		for _, dmg := range hits {
			go func(d int64) {
				defer wg.Done()
				el.Lock(KindBoss, bossID)
				defer el.Unlock(KindBoss, bossID)
				// Stale-read subtraction is exactly what the lock prevents.
				current := health
				health = current - d
			}(dmg)
		}
		wg.Wait()

		if health != expected {
			t.Fatalf("pool mutation lost damage: expected %d, got %d", expected, health)
		}
	})
}

// TestWithLockSerializationProperty checks WithLock against the same model.
func TestWithLockSerializationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		perOp := rapid.Int64Range(1, 100).Draw(t, "perOp")
		ownerID := rapid.Int64Range(1, 1000000).Draw(t, "ownerID")

		el := New()
		storage := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = el.WithLock(KindMine, ownerID, func() error {
					storage += perOp
					return nil
				})
			}()
		}
		wg.Wait()

		if want := initial + int64(numOps)*perOp; storage != want {
			t.Fatalf("WithLock mismatch: expected %d, got %d", want, storage)
		}
	})
}

// TestKindsAreIndependentProperty checks that the same id under different
// kinds maps to independent sections.
func TestKindsAreIndependentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Int64Range(1, 1000000).Draw(t, "id")

		el := New()
		el.Lock(KindPlayer, id)
		defer el.Unlock(KindPlayer, id)

		if !el.TryLock(KindMine, id) {
			t.Fatal("mine lock should be free while player lock is held")
		}
		el.Unlock(KindMine, id)

		if !el.TryLock(KindBoss, id) {
			t.Fatal("boss lock should be free while player lock is held")
		}
		el.Unlock(KindBoss, id)
	})
}

// TestTryLockExclusivityProperty checks that simultaneous TryLock attempts
// against one key admit at least one caller and leave the section free
// afterwards.
func TestTryLockExclusivityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		targetID := rapid.Int64Range(1, 1000000).Draw(t, "targetID")
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		el := New()

		var successCount atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-startCh
				if el.TryLock(KindMine, targetID) {
					successCount.Add(1)
					el.Unlock(KindMine, targetID)
				}
			}()
		}
		close(startCh)
		wg.Wait()

		if successCount.Load() < 1 {
			t.Fatalf("at least one TryLock should succeed, got %d", successCount.Load())
		}
		if !el.TryLock(KindMine, targetID) {
			t.Fatal("section should be free after all attempts complete")
		}
		el.Unlock(KindMine, targetID)
	})
}

// TestLockUnlockSymmetryProperty checks that repeated lock/unlock cycles
// leave the section acquirable, and that IsLocked tracks the transitions.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Int64Range(1, 1000000).Draw(t, "id")
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		el := New()
		for i := 0; i < numCycles; i++ {
			el.Lock(KindBoss, id)
			if !el.IsLocked(KindBoss, id) {
				t.Fatal("IsLocked should report a held section")
			}
			el.Unlock(KindBoss, id)
			if el.IsLocked(KindBoss, id) {
				t.Fatal("IsLocked should report a released section")
			}
		}

		if !el.TryLock(KindBoss, id) {
			t.Fatal("section should be free after symmetric cycles")
		}
		el.Unlock(KindBoss, id)
	})
}

// TestWithLockContextTimeout checks that a section held by someone else
// times the waiter out instead of blocking forever, and that a free
// section runs the callback.
func TestWithLockContextTimeout(t *testing.T) {
	el := New()
	ctx := context.Background()

	el.Lock(KindDuel, 42)
	err := el.WithLockContext(ctx, KindDuel, 42, 20*time.Millisecond, func() error {
		t.Fatal("callback must not run while the section is held elsewhere")
		return nil
	})
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	el.Unlock(KindDuel, 42)

	ran := false
	err = el.WithLockContext(ctx, KindDuel, 42, 20*time.Millisecond, func() error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("expected callback to run on a free section, err=%v ran=%v", err, ran)
	}

	// A cancelled context refuses the callback even when the lock is free.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = el.WithLockContext(cancelled, KindDuel, 42, 20*time.Millisecond, func() error {
		t.Fatal("callback must not run under a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
