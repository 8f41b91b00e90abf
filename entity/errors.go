package entity

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoAgent           = errors.New("no agent selected")
	ErrAgentInactive     = errors.New("agent is inactive")
	ErrUnknownStatus     = errors.New("unknown conversation status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrEmptyMessage      = errors.New("message has neither text nor images")
	ErrTooManyImages     = errors.New("too many images")
	ErrUnsupportedImage  = errors.New("unsupported image type")
	ErrNotAnImage        = errors.New("file is not an image")
	ErrConflict          = errors.New("changed concurrently")
	ErrForbidden         = errors.New("forbidden")
)
