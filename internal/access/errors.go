package access

import "errors"

var (
	ErrAccessDenied  = errors.New("access denied")
	ErrProtectedUser = errors.New("administrator accounts cannot be removed")
)
