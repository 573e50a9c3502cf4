package throttle

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the sliding interval over which admissions are counted.
	DefaultWindow = time.Minute
	// DefaultMaxAdmissions is the number of admissions allowed per window.
	DefaultMaxAdmissions = 5
	// AnonymousIdentifier is the sentinel bucket for callers without a
	// derivable network address.
	AnonymousIdentifier = "anonymous"
)

// Admitter decides whether a submitting identifier may proceed. Implementations
// are swappable: in-memory for single-instance deployments, a shared counting
// store for multi-instance deployments.
type Admitter interface {
	Admit(ctx context.Context, identifier string) (bool, error)
}

// MemoryAdmitter counts admissions per identifier inside a sliding window,
// held only in process memory. State is reset on process restart.
type MemoryAdmitter struct {
	window        time.Duration
	maxAdmissions int
	now           func() time.Time

	mutex                  sync.Mutex
	admissionsByIdentifier map[string][]time.Time
}

// NewMemoryAdmitter constructs a MemoryAdmitter with the default window and
// admission ceiling.
func NewMemoryAdmitter() *MemoryAdmitter {
	return &MemoryAdmitter{
		window:                 DefaultWindow,
		maxAdmissions:          DefaultMaxAdmissions,
		now:                    time.Now,
		admissionsByIdentifier: make(map[string][]time.Time),
	}
}

// Admit records and allows the request unless the identifier already used up
// its admissions inside the current window. It never returns an error.
func (admitter *MemoryAdmitter) Admit(ctx context.Context, identifier string) (bool, error) {
	currentTime := admitter.now()
	windowStart := currentTime.Add(-admitter.window)

	admitter.mutex.Lock()
	defer admitter.mutex.Unlock()

	admitter.dropExpiredIdentifiers(windowStart)

	recentAdmissions := pruneBefore(admitter.admissionsByIdentifier[identifier], windowStart)
	if len(recentAdmissions) >= admitter.maxAdmissions {
		admitter.admissionsByIdentifier[identifier] = recentAdmissions
		return false, nil
	}

	admitter.admissionsByIdentifier[identifier] = append(recentAdmissions, currentTime)
	return true, nil
}

// dropExpiredIdentifiers removes identifiers whose newest admission left the
// window. Admissions are appended in time order, so checking the last entry
// suffices. Keeps the map bounded by identifiers active within one window.
func (admitter *MemoryAdmitter) dropExpiredIdentifiers(windowStart time.Time) {
	for identifier, admissions := range admitter.admissionsByIdentifier {
		if len(admissions) == 0 || !admissions[len(admissions)-1].After(windowStart) {
			delete(admitter.admissionsByIdentifier, identifier)
		}
	}
}

func pruneBefore(admissions []time.Time, windowStart time.Time) []time.Time {
	pruned := admissions[:0]
	for _, admittedAt := range admissions {
		if admittedAt.After(windowStart) {
			pruned = append(pruned, admittedAt)
		}
	}
	return pruned
}
