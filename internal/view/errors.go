package view

import "errors"

var (
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("action already in progress")
	// ErrNotConfirmed is returned when a destructive action was declined.
	ErrNotConfirmed = errors.New("action not confirmed")
	// ErrInvalidInput is returned when a form fails local validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyGranted is returned when a grant targets an existing binding.
	ErrAlreadyGranted = errors.New("user already has access to this machine")
	// ErrSelectionIncomplete is returned when a grant or revoke lacks a user or machine.
	ErrSelectionIncomplete = errors.New("select both a user and a machine")
	// ErrNotFound is returned when an id is not in the last-loaded list.
	ErrNotFound = errors.New("not found in the current list")
)
