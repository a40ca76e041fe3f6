package model

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrScheduleNotFound    = errors.New("report schedule not found")
	ErrInvalidSchedule     = errors.New("invalid report schedule")
	ErrInvalidAlertConfig  = errors.New("invalid alert config")
	ErrInvalidPreference   = errors.New("invalid notification preference")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrInvalidPost         = errors.New("invalid post")
)
