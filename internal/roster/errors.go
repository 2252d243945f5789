package roster

import "errors"

// Validation rejections. They are decided locally before any remote call
// and leave the snapshot untouched.
var (
	ErrDayIneligible  = errors.New("member lacks availability for this day")
	ErrAlreadySeated  = errors.New("member already seated in another team for this day")
	ErrMemberAssigned = errors.New("member is already assigned")
	ErrCrossDayMove   = errors.New("teams of different days cannot swap members")
)

var (
	// ErrBusy rejects a mutation whose twin is still waiting on the remote service.
	ErrBusy           = errors.New("operation already in progress")
	ErrEventNotLoaded = errors.New("no event loaded for this region")
	ErrInvalidSignup  = errors.New("invalid signup")
	ErrInvalidTeam    = errors.New("invalid team")
)

// IsValidation reports whether err is a local rejection rather than a
// remote failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrDayIneligible) ||
		errors.Is(err, ErrAlreadySeated) ||
		errors.Is(err, ErrMemberAssigned) ||
		errors.Is(err, ErrCrossDayMove) ||
		errors.Is(err, ErrInvalidSignup) ||
		errors.Is(err, ErrInvalidTeam)
}
