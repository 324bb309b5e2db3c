package policy

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus is the lifecycle status of a pending escalation, mirroring
// the teacher's InterruptStatus vocabulary (an Escalate verdict is
// structurally the same problem as a human-in-the-loop interrupt: created,
// resolved by an external actor, or expired).
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusDenied   ApprovalStatus = "denied"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// Approval is a pending escalation awaiting an external decision.
type Approval struct {
	ID                string
	Request           Request
	RequiredApprovers []string
	Status            ApprovalStatus
	CreatedAt         time.Time
	Deadline          time.Time
	Resolver          string
}

// IsExpired reports whether the approval's deadline has passed.
func (a *Approval) IsExpired() bool {
	return !a.Deadline.IsZero() && time.Now().UTC().After(a.Deadline)
}

// ApprovalTracker stores pending/resolved escalations, thread-safe for
// concurrent Create/Resolve/ExpirePending/CleanupResolved calls.
type ApprovalTracker struct {
	mu    sync.Mutex
	store map[string]*Approval
}

// NewApprovalTracker builds an empty tracker.
func NewApprovalTracker() *ApprovalTracker {
	return &ApprovalTracker{store: make(map[string]*Approval)}
}

// Create records a new pending Approval for req with the given TTL,
// requiring sign-off from approvers (§4.7's "non-empty list of identifiers").
func (t *ApprovalTracker) Create(req Request, ttl time.Duration, approvers []string) *Approval {
	now := time.Now().UTC()
	a := &Approval{
		ID:                "apr_" + uuid.New().String()[:16],
		Request:           req,
		RequiredApprovers: append([]string(nil), approvers...),
		Status:            ApprovalStatusPending,
		CreatedAt:         now,
	}
	if ttl > 0 {
		a.Deadline = now.Add(ttl)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.store[a.ID] = a
	return a
}

// Get returns the approval by id, or nil if unknown.
func (t *ApprovalTracker) Get(id string) *Approval {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store[id]
}

// Resolve marks a pending approval Approved or Denied by resolver. Returns
// nil if the approval is unknown or no longer pending.
func (t *ApprovalTracker) Resolve(id string, approved bool, resolver string) *Approval {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.store[id]
	if !ok || a.Status != ApprovalStatusPending {
		return nil
	}
	if approved {
		a.Status = ApprovalStatusApproved
	} else {
		a.Status = ApprovalStatusDenied
	}
	a.Resolver = resolver
	return a
}

// ExpirePending flips any pending approval whose deadline has passed to
// Expired, returning how many were expired.
func (t *ApprovalTracker) ExpirePending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, a := range t.store {
		if a.Status == ApprovalStatusPending && a.IsExpired() {
			a.Status = ApprovalStatusExpired
			count++
		}
	}
	return count
}

// CleanupResolved removes terminal (non-pending) approvals older than
// olderThan, bounding memory growth the way the teacher's
// InterruptService.CleanupResolved does.
func (t *ApprovalTracker) CleanupResolved(olderThan time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	count := 0
	for id, a := range t.store {
		if a.Status != ApprovalStatusPending && a.CreatedAt.Before(cutoff) {
			delete(t.store, id)
			count++
		}
	}
	return count
}

// Stats returns a count of approvals by status, for observability.
func (t *ApprovalTracker) Stats() map[ApprovalStatus]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make(map[ApprovalStatus]int)
	for _, a := range t.store {
		stats[a.Status]++
	}
	return stats
}
