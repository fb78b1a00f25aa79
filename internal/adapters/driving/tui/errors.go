package tui

import "errors"

// ErrMissingScanner is returned when the scanner service is not provided.
var ErrMissingScanner = errors.New("tui: scanner service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
