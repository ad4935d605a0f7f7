package core

import (
	"errors"
	"fmt"
)

// ErrNotLoaded is returned by every query issued before the engine has been
// loaded. It distinguishes "no data yet" from "no such id".
var ErrNotLoaded = errors.New("engine not loaded")

// ErrUnknownKind is returned for admissions of an unsupported entity kind.
var ErrUnknownKind = errors.New("unknown entity kind")

// ErrNotFound is returned when an operation needs a record that does not exist.
type ErrNotFound struct {
	Entity EntityKind
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrHeld is returned when a commit carries soft warnings that must be
// acknowledged before the record is written.
type ErrHeld struct {
	Result Result
}

func (e ErrHeld) Error() string {
	return fmt.Sprintf("admission held: %d warning(s) require acknowledgement", len(e.Result.Warnings()))
}
