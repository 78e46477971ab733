package storage

import "errors"

var (
	ErrGalleryNotFound  = errors.New("gallery not found")
	ErrMediaNotFound    = errors.New("media not found")
	ErrPackageNotFound  = errors.New("package not found")
	ErrGrantNotFound    = errors.New("access grant not found")
	ErrProgressNotFound = errors.New("archive progress not found")
	ErrSlugTaken        = errors.New("gallery slug already taken")
)

var (
	ErrAccessDenied           = errors.New("access level does not permit this operation")
	ErrQuotaExceeded          = errors.New("selection quota exceeded")
	ErrDeadlinePassed         = errors.New("selection deadline has passed")
	ErrInvalidStateTransition = errors.New("invalid package state transition")
	ErrInvalidPassword        = errors.New("invalid gallery password")
)

var (
	ErrFileNotFound = errors.New("file not found")
)
