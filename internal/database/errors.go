package database

import "errors"

// ErrDuplicateReaction is returned when a user reacts twice to the
// same message.
var ErrDuplicateReaction = errors.New("reaction already exists")

// ErrDuplicateEmail is returned when registering an email address
// that already has an account.
var ErrDuplicateEmail = errors.New("email address already registered")
