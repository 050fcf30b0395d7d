package customer

import "github.com/xenking/bookstore-pricing/internal/domain/discount"

// Wallet is a customer's active-discount collection. It is a stable,
// insertion-ordered sequence: per-line discount selection is "first eligible
// match wins", so replacing it with an unordered set would make line-level
// pricing nondeterministic.
type Wallet struct {
	assignments []*discount.Assignment
}

// Grant appends an assignment. No deduplication is performed.
func (w *Wallet) Grant(a *discount.Assignment) {
	w.assignments = append(w.assignments, a)
}

// All returns the assignments in insertion order. The returned slice is the
// wallet's backing storage; callers outside an UpdateWallet block must use
// Customer.Assignments instead.
func (w *Wallet) All() []*discount.Assignment {
	return w.assignments
}

// Remove deletes the assignment (matched by identity) while preserving the
// relative order of the remaining entries.
func (w *Wallet) Remove(target *discount.Assignment) {
	kept := w.assignments[:0]
	for _, a := range w.assignments {
		if a != target {
			kept = append(kept, a)
		}
	}
	// Avoid retaining removed pointers in the tail.
	for i := len(kept); i < len(w.assignments); i++ {
		w.assignments[i] = nil
	}
	w.assignments = kept
}

// Len returns the number of held assignments.
func (w *Wallet) Len() int {
	return len(w.assignments)
}

func (w *Wallet) snapshot() []*discount.Assignment {
	out := make([]*discount.Assignment, len(w.assignments))
	copy(out, w.assignments)
	return out
}
