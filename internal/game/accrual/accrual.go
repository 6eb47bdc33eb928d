// Package accrual implements lazy time-based resource regeneration.
//
// A resource accrues rate units per period up to a cap. The checkpoint
// only advances by whole consumed periods, so fractional elapsed time is
// never lost between evaluations, and evaluating twice with the same
// clock reading credits nothing extra.
package accrual

import "time"

// Result describes the outcome of evaluating accrual at a point in time.
type Result struct {
	// Value is the resource amount after accrual, clamped to the cap.
	Value int64
	// Checkpoint is the new accrual checkpoint to persist.
	Checkpoint time.Time
	// Accrued is how much was actually credited.
	Accrued int64
}

// Accrue computes the resource value at now given the last persisted value
// and checkpoint. rate units are credited per period elapsed, clamped to
// cap. Once the cap is reached the checkpoint jumps to now so that time
// spent at the cap is not banked against future spending.
func Accrue(current, cap, rate int64, period time.Duration, checkpoint, now time.Time) Result {
	if rate <= 0 || period <= 0 || now.Before(checkpoint) {
		return Result{Value: current, Checkpoint: checkpoint}
	}
	if current >= cap {
		return Result{Value: current, Checkpoint: now}
	}

	periods := int64(now.Sub(checkpoint) / period)
	if periods == 0 {
		return Result{Value: current, Checkpoint: checkpoint}
	}

	gained := periods * rate
	if current+gained >= cap {
		return Result{Value: cap, Checkpoint: now, Accrued: cap - current}
	}
	return Result{
		Value:      current + gained,
		Checkpoint: checkpoint.Add(time.Duration(periods) * period),
		Accrued:    gained,
	}
}
