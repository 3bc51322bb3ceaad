package view

// Confirmer gates destructive actions behind an explicit yes.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Preconfirmed is for front ends that ask before dispatching the action.
var Preconfirmed Confirmer = ConfirmFunc(func(string) bool { return true })

// Form is the open/closed state of a create or edit form.
type Form struct {
	Open   bool
	EditID int64
	Name   string
	Error  string
}

// Editing reports whether the form edits an existing entity.
func (f Form) Editing() bool { return f.EditID != 0 }
