package domain

import "errors"

var (
	// ErrJobNotFound is returned when an order cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal is returned for any action on a completed or cancelled job
	ErrJobTerminal = errors.New("job is in a terminal stage")

	// ErrInvalidTransition is returned when the requested action is not
	// permitted from the current stage
	ErrInvalidTransition = errors.New("action not allowed in current stage")

	// ErrTimerNotElapsed is returned when a gate countdown is still running
	ErrTimerNotElapsed = errors.New("countdown has not elapsed yet")

	// ErrTimerStillRunning is returned when an action requires the work
	// countdown to have fully elapsed first
	ErrTimerStillRunning = errors.New("work countdown is still running")

	// ErrWaitNotElapsed is returned when a no-show is confirmed before the
	// customer wait window has run out
	ErrWaitNotElapsed = errors.New("customer wait window has not elapsed")

	// ErrMinimumWorkNotMet is returned when an early no-show finish is
	// attempted before the minimum elapsed work time
	ErrMinimumWorkNotMet = errors.New("minimum elapsed work time not met")

	// ErrReasonRequired is returned when an enumerated reason (or its free
	// text for "other") is missing
	ErrReasonRequired = errors.New("a reason is required")

	// ErrInvalidReason is returned for a reason outside the enumeration
	ErrInvalidReason = errors.New("unknown reason")

	// ErrNoteNotAllowed is returned when a note accompanies a 5-star rating
	ErrNoteNotAllowed = errors.New("a note is not allowed with a 5-star rating")

	// ErrInvalidRating is returned for stars outside 1..5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrNoPendingRating is returned when submit is called before a rating
	// was chosen
	ErrNoPendingRating = errors.New("no rating pending submission")

	// ErrBookingConflict is returned when an extension collides with the
	// specialist's next booking
	ErrBookingConflict = errors.New("next booking starts too soon for an extension")

	// ErrPaymentNotConfirmed is returned when the payment confirmation flag
	// is missing
	ErrPaymentNotConfirmed = errors.New("payment must be explicitly confirmed")

	// ErrPolicyNotFound is returned when a required policy row is absent
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrEngineClosed is returned when a command is sent to an engine that
	// has already shut down
	ErrEngineClosed = errors.New("tracking engine closed")
)
