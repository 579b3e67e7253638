package models

import "errors"

// ErrInvalid marks a document that breaks one of its own invariants.
var ErrInvalid = errors.New("invalid")

// ErrAlreadyReviewed is returned when a user reviews the same cake twice.
var ErrAlreadyReviewed = errors.New("cake already reviewed by this user")
