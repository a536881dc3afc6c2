package billing

import "errors"

var (
	// ErrMissingUserContext means a subscription-mode checkout event carried
	// no user id in its metadata. The event is left unprocessed so an
	// operator can investigate; redelivery will hit the same error.
	ErrMissingUserContext = errors.New("checkout session has no user id in metadata")

	// ErrInvalidPeriodEnd means the external subscription resource did not
	// carry a usable current-period-end timestamp.
	ErrInvalidPeriodEnd = errors.New("subscription has no valid current period end")
)
