// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

// StatusUpdated carries a fresh scan status snapshot to the model.
type StatusUpdated struct {
	Status driving.ScanStatus
}

// ScanFinished signals that the traversal ended, normally or not.
type ScanFinished struct {
	Session *domain.ScanSession
	Err     error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
