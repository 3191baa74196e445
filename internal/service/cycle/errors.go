package cycle

import "errors"

var (
	// ErrInsufficientPool is returned when fewer than two users pass the
	// eligibility filters; the cycle aborts with no writes.
	ErrInsufficientPool = errors.New("fewer than two eligible users for cycle")

	// ErrCycleAlreadyRunning is returned when the per-date run lock is
	// already held by another invocation.
	ErrCycleAlreadyRunning = errors.New("a cycle run is already in progress for this date")

	// ErrPartnerNotFound marks an incomplete pairing whose submitter could
	// not be re-homed this cycle. Absorbed and logged, never fatal.
	ErrPartnerNotFound = errors.New("no eligible replacement partner found")
)
