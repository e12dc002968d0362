package model

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrInvalidState           = errors.New("invalid state")
	ErrAlreadyAccepted        = errors.New("already accepted")
	ErrSelfAcceptNotAllowed   = errors.New("cannot accept own swap request")
	ErrNoActiveWalk           = errors.New("no active walk")
	ErrMissingStartTime       = errors.New("walk start time not recorded")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)
