package common

import "errors"

// ErrModulePaused is returned by Guard when the protocol is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails when the supplied module is paused. The returned error is a
// StateError so callers observe the same taxonomy as any other bounds check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return &pausedError{module: module}
	}
	return nil
}

type pausedError struct {
	module string
}

func (e *pausedError) Error() string { return "state error: " + e.module + " paused" }

func (e *pausedError) Is(target error) bool {
	return target == ErrModulePaused || target == ErrState
}
