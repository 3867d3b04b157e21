package forecast

import (
	"time"
)

// DefaultCallsPerCredential is the daily call allowance of a free Solcast key.
const DefaultCallsPerCredential = 10

// QuotaRotator owns the configured credentials, the index of the one in use
// and the daily call budget. It is not safe for concurrent use; the Manager
// guards it with its own lock.
type QuotaRotator struct {
	credentials []Credential
	index       int

	limit       int
	callsToday  int
	lastCallDay time.Time
}

// NewQuotaRotator creates a rotator with a daily budget of
// callsPerCredential times the number of credentials.
func NewQuotaRotator(creds []Credential, callsPerCredential int) *QuotaRotator {
	if callsPerCredential <= 0 {
		callsPerCredential = DefaultCallsPerCredential
	}
	c := make([]Credential, len(creds))
	copy(c, creds)
	return &QuotaRotator{
		credentials: c,
		limit:       callsPerCredential * len(c),
	}
}

// Len returns the number of credentials.
func (q *QuotaRotator) Len() int {
	return len(q.credentials)
}

// Index returns the index of the credential currently in use.
func (q *QuotaRotator) Index() int {
	return q.index
}

// Limit returns the daily call budget.
func (q *QuotaRotator) Limit() int {
	return q.limit
}

// Current returns the credential currently in use.
func (q *QuotaRotator) Current() (Credential, bool) {
	if len(q.credentials) == 0 {
		return Credential{}, false
	}
	return q.credentials[q.index], true
}

// Rotate advances to the next credential and returns it.
func (q *QuotaRotator) Rotate() Credential {
	if len(q.credentials) == 0 {
		return Credential{}
	}
	q.index = (q.index + 1) % len(q.credentials)
	return q.credentials[q.index]
}

// rollover resets the counter the first time a new calendar day is observed
// relative to the last successful call.
func (q *QuotaRotator) rollover(now time.Time) {
	if q.lastCallDay.IsZero() {
		return
	}
	ly, lm, ld := q.lastCallDay.In(now.Location()).Date()
	y, m, d := now.Date()
	if ly != y || lm != m || ld != d {
		q.callsToday = 0
	}
}

// CanCall reports whether another remote call fits in today's budget.
func (q *QuotaRotator) CanCall(now time.Time) bool {
	q.rollover(now)
	return q.callsToday < q.limit
}

// TryAcquireCredential returns the credential to use for the next call or
// ErrQuotaExhausted if the daily budget is spent.
func (q *QuotaRotator) TryAcquireCredential(now time.Time) (Credential, error) {
	if !q.CanCall(now) {
		return Credential{}, ErrQuotaExhausted
	}
	c, ok := q.Current()
	if !ok {
		return Credential{}, ErrQuotaExhausted
	}
	return c, nil
}

// RecordSuccess counts a successful remote call. Failed attempts are never
// counted.
func (q *QuotaRotator) RecordSuccess(now time.Time) {
	q.rollover(now)
	q.callsToday++
	q.lastCallDay = now
}

// CallsToday returns the number of successful calls made today.
func (q *QuotaRotator) CallsToday(now time.Time) int {
	q.rollover(now)
	return q.callsToday
}

// Remaining returns how many calls are left today.
func (q *QuotaRotator) Remaining(now time.Time) int {
	q.rollover(now)
	return max(0, q.limit-q.callsToday)
}
