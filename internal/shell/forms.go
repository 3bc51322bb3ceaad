package shell

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	return ti
}

// loginForm is the username/password screen.
type loginForm struct {
	inputs  []textinput.Model
	focus   int
	err     string
	pending bool
}

func newLoginForm() *loginForm {
	username := newInput("username")
	password := newInput("password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	f := &loginForm{inputs: []textinput.Model{username, password}}
	f.focusOn(0)
	return f
}

func (f *loginForm) focusOn(i int) {
	f.focus = i
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *loginForm) values() (username, password string) {
	return f.inputs[0].Value(), f.inputs[1].Value()
}

func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

type field struct {
	label string
	input textinput.Model
}

// form is a modal text form. submit runs off the UI goroutine and reports
// through formDoneMsg; errText turns a failure into the line shown under the
// fields, or "" when the failure already produced a notice.
type form struct {
	title   string
	fields  []field
	focus   int
	err     string
	pending bool
	submit  func(values []string) tea.Cmd
	errText func(error) string
	cancel  func()
	// hints, when set, returns advisory lines for the current values.
	hints func(values []string) []string
}

func newForm(title string, labels ...string) *form {
	f := &form{title: title}
	for _, l := range labels {
		f.fields = append(f.fields, field{label: l, input: newInput(strings.ToLower(l))})
	}
	f.focusOn(0)
	return f
}

// prefill sets initial values in field order.
func (f *form) prefill(values ...string) *form {
	for i, v := range values {
		if i < len(f.fields) {
			f.fields[i].input.SetValue(v)
		}
	}
	return f
}

func (f *form) focusOn(i int) {
	f.focus = i
	for j := range f.fields {
		if j == i {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
}

func (f *form) next() bool {
	if f.focus == len(f.fields)-1 {
		return false
	}
	f.focusOn(f.focus + 1)
	return true
}

func (f *form) prev() {
	if f.focus > 0 {
		f.focusOn(f.focus - 1)
	}
}

func (f *form) values() []string {
	out := make([]string, len(f.fields))
	for i, fl := range f.fields {
		out[i] = fl.input.Value()
	}
	return out
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

// confirmation is a y/N prompt guarding a destructive action.
type confirmation struct {
	prompt string
	run    tea.Cmd
}
