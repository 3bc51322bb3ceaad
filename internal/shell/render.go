package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fleet-admin-console/internal/client"
	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/view"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Background(lipgloss.Color("#313244")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#89B4FA"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#313244")).
			Padding(0, 1)

	paneFocusStyle = paneStyle.
			BorderForeground(lipgloss.Color("#7C3AED"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(1, 3)
)

const timeLayout = "2006-01-02 15:04"

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.mode == modeLogin {
		return m.renderLogin()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Fleet Admin Console"))
	b.WriteString("\n")
	b.WriteString(m.renderTabBar())
	b.WriteString("\n\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.renderForm())
	case modeHistory:
		b.WriteString(m.renderHistory())
	default:
		b.WriteString(m.renderTab())
	}
	b.WriteString("\n\n")

	if m.mode == modeConfirm {
		b.WriteString(errorStyle.Render(m.confirm.prompt + " [y/N]"))
		b.WriteString("\n")
	}
	b.WriteString(m.renderNotice())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m uiModel) renderLogin() string {
	f := m.login
	var b strings.Builder
	b.WriteString(titleStyle.Render("Fleet Admin Console"))
	b.WriteString("\n\n")
	labels := []string{"Username", "Password"}
	for i, in := range f.inputs {
		label := fmt.Sprintf("%-9s", labels[i])
		if i == f.focus {
			label = headerStyle.Render(label)
		}
		b.WriteString(label + " " + in.View() + "\n")
	}
	b.WriteString("\n")
	switch {
	case f.pending:
		b.WriteString(dimStyle.Render("Signing in..."))
	case f.err != "":
		b.WriteString(errorStyle.Render(f.err))
	}
	if notice := m.renderNotice(); notice != "" {
		b.WriteString("\n" + notice)
	}
	b.WriteString("\n\n" + dimStyle.Render("tab: next field | enter: sign in | esc: quit"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(b.String()))
}

func (m uiModel) renderTabBar() string {
	current := m.console.Tab()
	var tabs []string
	for i, t := range view.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == current {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m uiModel) renderNotice() string {
	n, ok := m.console.Notices().Current()
	if !ok {
		return ""
	}
	if n.Kind == view.NoticeError {
		return errorStyle.Render("✗ " + n.Text)
	}
	return successStyle.Render("✓ " + n.Text)
}

func (m uiModel) renderHelp() string {
	if m.showHelp {
		return m.help.FullHelpView(keys.FullHelp())
	}
	return dimStyle.Render(contextHelp(m.mode, m.console.Tab()))
}

// contextHelp returns help text appropriate for the current screen.
func contextHelp(md mode, t view.Tab) string {
	switch md {
	case modeForm:
		return "tab: next field | enter: next/submit | esc: cancel"
	case modeConfirm:
		return "y: confirm | any other key: cancel"
	case modeFilter:
		return "type to filter | enter: keep | esc: clear"
	case modeHistory:
		return "j/k: scroll | n: new status | r: refresh | esc: back"
	}
	switch t {
	case view.TabUsers:
		return "j/k: select | n: new | a: toggle admin | d: delete | r: refresh | tab: next | L: log out | q: quit"
	case view.TabMachines:
		return "j/k: select | enter: history | n: new | e: rename | d: delete | r: refresh | tab: next | q: quit"
	case view.TabDevices:
		return "j/k: select | n: register | d: delete | r: refresh | tab: next | L: log out | q: quit"
	case view.TabPermissions:
		return "h/l: pane | enter: select | /: filter | g: grant | v: revoke | d: revoke binding | tab: next | q: quit"
	default:
		return "1-5: tabs | tab: next | r: refresh | ?: help | L: log out | q: quit"
	}
}

func (m uiModel) renderTab() string {
	c := m.console
	switch c.Tab() {
	case view.TabUsers:
		return renderList(c.Users.Snapshot(), "users", m.cursor[view.TabUsers],
			headerStyle.Render(fmt.Sprintf("%-5s %-24s %-7s %s", "ID", "USERNAME", "ROLE", "CREATED")),
			func(u model.User) string {
				return fmt.Sprintf("%-5d %-24s %-7s %s", u.ID, u.Username, u.Role, u.CreatedAt.Format(timeLayout))
			})
	case view.TabMachines:
		return renderList(c.Machines.Snapshot(), "machines", m.cursor[view.TabMachines],
			headerStyle.Render(fmt.Sprintf("%-5s %-24s %-6s %-7s %-10s %s", "ID", "NAME", "RPM", "CYCLES", "REMAINING", "LAST STATUS")),
			renderMachine)
	case view.TabDevices:
		return m.renderDevices()
	case view.TabPermissions:
		return m.renderPermissions()
	default:
		return m.renderDashboard()
	}
}

// renderList keeps failed, loading and empty lists visibly distinct.
func renderList[T any](s view.Snapshot[T], noun string, cursor int, header string, row func(T) string) string {
	switch {
	case s.Phase == view.PhaseLoadFailed:
		return errorStyle.Render(fmt.Sprintf("Failed to load %s: %s", noun, client.Reason(s.Err, s.Err.Error())))
	case len(s.Items) == 0 && s.Phase != view.PhaseLoaded:
		return dimStyle.Render(fmt.Sprintf("Loading %s...", noun))
	case s.Empty():
		return dimStyle.Render(fmt.Sprintf("No %s yet.", noun))
	}
	lines := []string{header}
	for i, item := range s.Items {
		line := row(item)
		if i == cursor {
			line = cursorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if s.Phase == view.PhaseLoading {
		lines = append(lines, dimStyle.Render("refreshing..."))
	}
	return strings.Join(lines, "\n")
}

func renderMachine(mc model.Machine) string {
	if mc.Status == nil {
		return fmt.Sprintf("%-5d %-24s %-6s %-7s %-10s %s", mc.ID, mc.Name, "-", "-", "-", "never")
	}
	st := mc.Status
	return fmt.Sprintf("%-5d %-24s %-6d %-7d %-10s %s", mc.ID, mc.Name, st.MainSpeedRPM, st.MachineCycles, dash(st.RemainingTime), st.CreatedAt.Format(timeLayout))
}

func (m uiModel) renderDashboard() string {
	s := m.console.Stats()
	card := func(label string, n int) string {
		return paneStyle.Render(headerStyle.Render(label) + "\n" + fmt.Sprintf("%d", n))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Users", s.Users), " ",
		card("Machines", s.Machines), " ",
		card("Devices", s.Devices))
}

func (m uiModel) renderDevices() string {
	v := m.console.Devices
	list := renderList(v.Snapshot(), "devices", m.cursor[view.TabDevices],
		headerStyle.Render(fmt.Sprintf("%-18s %-12s %-24s %-20s %s", "IMEI", "STATUS", "INFO", "NOTE", "REGISTERED")),
		func(d model.Device) string {
			return fmt.Sprintf("%-18s %-12s %-24s %-20s %s", d.IMEI, dash(d.Status), dash(d.Info), dash(d.Note), d.CreatedAt.Format(timeLayout))
		})

	pending := v.Pending()
	if len(pending) == 0 {
		return list
	}
	lines := []string{list, "", headerStyle.Render("Pending")}
	for _, op := range pending {
		line := fmt.Sprintf("⟳ %s %s: %s", op.Kind, op.IMEI, op.State())
		if op.State() == view.OpPolling {
			line += fmt.Sprintf(" (check %d)", op.Attempts())
		}
		lines = append(lines, pendingStyle.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m uiModel) renderPermissions() string {
	v := m.console.Permissions
	selUser, selMachine := v.Selection()
	userFilter, machineFilter := v.Filters()

	mark := func(selected bool) string {
		if selected {
			return "[x]"
		}
		return "[ ]"
	}
	pane := func(p permPane, title, filter string, body string) string {
		if filter != "" {
			title += dimStyle.Render(" /" + filter)
		}
		if m.mode == modeFilter && m.pane == p {
			title += " " + m.filter.View()
		}
		style := paneStyle
		if m.pane == p {
			style = paneFocusStyle
		}
		return style.Render(headerStyle.Render(title) + "\n" + body)
	}

	users := v.UsersSnapshot()
	users.Items = v.Users()
	usersBody := renderList(users, "users", m.permCursor[paneUsers], "", func(u model.User) string {
		return fmt.Sprintf("%s %s", mark(u.ID == selUser), u.Username)
	})

	machines := v.MachinesSnapshot()
	machines.Items = v.Machines()
	machinesBody := renderList(machines, "machines", m.permCursor[paneMachines], "", func(mc model.Machine) string {
		return fmt.Sprintf("%s %s", mark(mc.ID == selMachine), mc.Name)
	})

	bindingsBody := renderList(v.Bindings(), "permissions", m.permCursor[paneBindings], "", func(p model.PermissionDetail) string {
		line := fmt.Sprintf("%s → %s", p.Username, p.MachineName)
		if p.Matches(selUser, selMachine) {
			line = successStyle.Render(line)
		}
		return line
	})

	status := dimStyle.Render("Select a user and a machine.")
	if v.CanGrant() {
		if v.Granted(selUser, selMachine) {
			status = successStyle.Render("Selected pair has access. v: revoke")
		} else {
			status = pendingStyle.Render("Selected pair has no access. g: grant")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		pane(paneUsers, "Users", userFilter, strings.TrimPrefix(usersBody, "\n")), " ",
		pane(paneMachines, "Machines", machineFilter, strings.TrimPrefix(machinesBody, "\n")), " ",
		pane(paneBindings, "Active permissions", "", strings.TrimPrefix(bindingsBody, "\n")),
	) + "\n" + status
}

func (m uiModel) renderHistory() string {
	h := m.history
	mc := h.Machine()
	header := headerStyle.Render(fmt.Sprintf("%-6s %-17s %-16s %-6s %-7s %-4s %-9s %-10s %s",
		"ID", "RECORDED", "IMEI", "RPM", "CYCLES", "FAN", "PUMP I/O", "PROCESS", "REMAINING"))
	body := renderList(h.Snapshot(), "status records", m.historyCursor, header, func(st model.MachineStatus) string {
		return fmt.Sprintf("%-6d %-17s %-16s %-6d %-7d %-4s %-9s %-10s %s",
			st.ID, st.CreatedAt.Format(timeLayout), dash(st.IMEI), st.MainSpeedRPM, st.MachineCycles,
			onOff(st.FanOn), onOff(st.PumpInOn)+"/"+onOff(st.PumpOutOn), dash(st.ProcessingTime), dash(st.RemainingTime))
	})
	return titleStyle.Render(fmt.Sprintf("%s (id %d) history", mc.Name, mc.ID)) + "\n\n" + body
}

func (m uiModel) renderForm() string {
	f := m.form
	var b strings.Builder
	b.WriteString(headerStyle.Render(f.title) + "\n\n")
	width := 0
	for _, fl := range f.fields {
		width = max(width, len(fl.label))
	}
	for i, fl := range f.fields {
		label := fmt.Sprintf("%-*s", width, fl.label)
		if i == f.focus {
			label = headerStyle.Render(label)
		}
		b.WriteString(label + "  " + fl.input.View() + "\n")
	}
	if f.hints != nil {
		for _, h := range f.hints(f.values()) {
			b.WriteString("\n" + dimStyle.Render(h))
		}
	}
	switch {
	case f.pending:
		b.WriteString("\n" + dimStyle.Render("Saving..."))
	case f.err != "":
		b.WriteString("\n" + errorStyle.Render(f.err))
	}
	return paneFocusStyle.Render(b.String())
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
