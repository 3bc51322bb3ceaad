package shell

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Tab     key.Binding
	BackTab key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Enter   key.Binding
	Esc     key.Binding
	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Role    key.Binding
	Grant   key.Binding
	Revoke  key.Binding
	Filter  key.Binding
	Refresh key.Binding
	Dismiss key.Binding
	Logout  key.Binding
	Help    key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
	BackTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous tab")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "previous pane")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "next pane")),
	Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/select")),
	Esc:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Role:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle admin")),
	Grant:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grant")),
	Revoke:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "revoke selection")),
	Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss notice")),
	Logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// tabKeys jump straight to a tab.
var tabKeys = map[string]int{"1": 0, "2": 1, "3": 2, "4": 3, "5": 4}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.BackTab, k.Up, k.Down, k.Left, k.Right},
		{k.Enter, k.Esc, k.New, k.Edit, k.Delete, k.Role},
		{k.Grant, k.Revoke, k.Filter, k.Refresh, k.Dismiss},
		{k.Logout, k.Help, k.Quit},
	}
}
