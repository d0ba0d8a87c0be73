package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/headlines/internal/feed"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// errorKind picks the status severity for err. Input the user can fix is
// a warning; everything else is an error.
func errorKind(err error) StatusKind {
	var verr *feed.ValidationError
	if errors.As(err, &verr) {
		return StatusWarn
	}
	return StatusError
}
