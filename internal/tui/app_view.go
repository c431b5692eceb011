package tui

import (
	"fmt"
	"strings"

	"item-console/internal/console"

	"github.com/charmbracelet/lipgloss"
)

var columnTitles = []string{"Item ID", "Name", "Description", "Price", "Tax"}

const (
	checkboxW  = 4
	priceW     = 10
	taxW       = 8
	formLabelW = 13
	// Lines used by everything except the table body.
	chromeLines = 14
)

func (m appModel) View() string {
	var s string
	switch m.activeModal() {
	case modalConfirm:
		s = renderConfirmModal(m.width, "Confirm", m.confirm.text, "Yes", "No", m.confirmFocus)
	case modalAlert:
		s = renderAlertModal(m.width, m.alerts[0])
	case modalHelp:
		s = renderHelpModal(m.width, m.height, m.helpRendered, m.helpOffset)
	default:
		return m.renderMain()
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m appModel) renderMain() string {
	parts := []string{
		styleHeader().Render("Item console") + "  " + styleMuted().Render(m.apiURL),
		"",
		m.renderTable(),
		"",
		m.renderForm(),
		"",
		m.renderFooter(),
	}
	return normalizePane(strings.Join(parts, "\n"), m.width, m.height)
}

// columnWidths splits the terminal width between id, name and description.
func (m appModel) columnWidths() []int {
	flex := m.width - checkboxW - priceW - taxW - 4
	if flex < 30 {
		flex = 30
	}
	idW := flex / 4
	if idW > 36 {
		idW = 36
	}
	nameW := (flex - idW) / 3
	descW := flex - idW - nameW
	return []int{idW, nameW, descW, priceW, taxW}
}

func (m appModel) renderTable() string {
	widths := m.columnWidths()

	var b strings.Builder
	b.WriteString(styleHeader().Render(joinCells(strings.Repeat(" ", checkboxW), columnTitles, widths)))
	b.WriteString("\n")

	switch m.table {
	case tableLoading:
		b.WriteString(styleMuted().Render(m.spinner.View() + " " + console.LoadingText))
		return b.String()
	case tableFailed:
		b.WriteString(styleError().Render(console.LoadFailedText))
		return b.String()
	}
	if len(m.rows) == 0 {
		b.WriteString(styleMuted().Render("No items."))
		return b.String()
	}

	visible := m.height - chromeLines
	if visible < 3 {
		visible = 3
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.rows) {
		end = len(m.rows)
	}

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(i, widths))
	}
	if end < len(m.rows) || start > 0 {
		lines = append(lines, styleMuted().Render(fmt.Sprintf("%d-%d of %d", start+1, end, len(m.rows))))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func (m appModel) renderRow(i int, widths []int) string {
	r := m.rows[i]
	box := "[ ] "
	if m.selected[r.ItemID] {
		box = "[x] "
	}
	line := joinCells(box, r.Cells(), widths)
	if i == m.cursor && m.focus == focusTable {
		return styleSelectedRow().Render(line)
	}
	return line
}

func joinCells(prefix string, cells []string, widths []int) string {
	out := make([]string, 0, len(cells))
	for i, c := range cells {
		out = append(out, fitWidth(c, widths[i]))
	}
	return prefix + strings.Join(out, " ")
}

func (m appModel) renderForm() string {
	labels := []string{"Name", "Description", "Price", "Tax"}
	inputW := m.width - formLabelW - 2
	if inputW > 60 {
		inputW = 60
	}

	lines := make([]string, 0, len(labels)+2)
	title := "New item"
	if m.editingID != "" {
		title = "Editing " + m.editingID
	}
	lines = append(lines, styleHeader().Render(title))
	for i, l := range labels {
		label := fitWidth(l, formLabelW)
		if m.focus == focusArea(i+1) {
			label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(label)
		}
		lines = append(lines, label+renderInputLine(inputW, m.inputs[i].View()))
	}
	lines = append(lines, strings.Repeat(" ", formLabelW)+m.renderSubmitControl())
	return strings.Join(lines, "\n")
}

func (m appModel) renderSubmitControl() string {
	st := lipgloss.NewStyle().Padding(0, 1).Foreground(colorAccentFg).Background(colorAccent)
	if m.submitState == console.Submitting {
		return styleMuted().Render(m.spinner.View()) + " " + st.Faint(true).Render(m.submitState.Label())
	}
	return st.Render(m.submitState.Label())
}

func (m appModel) renderFooter() string {
	if m.minibufferText != "" {
		return styleSuccess().Render(m.minibufferText)
	}
	var hint string
	if m.focus == focusTable {
		hint = "space: select  a: all  e: edit  d: delete  y: copy id  r: reload  tab: form  ?: help  q: quit"
	} else {
		hint = "enter/ctrl+s: submit  tab: next field  esc: clear  ctrl+c: quit"
	}
	if n := len(m.selectedIDs()); n > 0 {
		hint = fmt.Sprintf("%d selected  ", n) + hint
	}
	return styleMuted().Render(hint)
}
