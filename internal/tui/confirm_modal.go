package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

const (
	modalMaxWidth = 72
	modalMinWidth = 30
)

// modalWidth is the outer width of a modal for a terminal of the given width.
func modalWidth(width int) int {
	w := width - 8
	if w > modalMaxWidth {
		w = modalMaxWidth
	}
	if w < modalMinWidth {
		w = modalMinWidth
	}
	return w
}

// modalBodyWidth is the content width inside a modal (padding excluded).
func modalBodyWidth(width int) int {
	return modalWidth(width) - 4
}

func renderModalBox(width int, title string, content string) string {
	w := modalWidth(width)
	bodyW := modalBodyWidth(width)

	header := lipgloss.NewStyle().
		Width(w).
		Padding(0, 2).
		Bold(true).
		Foreground(colorSurfaceFg).
		Background(colorControlBg).
		Render(title)

	body := lipgloss.NewStyle().
		Width(w).
		Padding(1, 2).
		Foreground(colorSurfaceFg).
		Background(colorSurfaceBg).
		Render(lipgloss.NewStyle().Width(bodyW).Render(content))

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func renderConfirmModal(width int, title string, body string, confirmLabel string, cancelLabel string, focus confirmModalFocus) string {
	// No borders: nested borders on a colored background leave artifacts in some terminals.
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorAccentFg).
		Background(colorAccent).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render(cancelLabel)
	switch focus {
	case confirmFocusConfirm:
		confirm = btnActive.Render(confirmLabel)
	case confirmFocusCancel:
		cancel = btnActive.Render(cancelLabel)
	}

	sep := lipgloss.NewStyle().Background(colorControlBg).Render(" ")
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, sep, cancel)

	help := styleMuted().Width(modalBodyWidth(width)).Render("y: yes   n/esc: no   tab: focus   enter: select")

	content := strings.Join([]string{
		body,
		"",
		controls,
		"",
		help,
	}, "\n")
	return renderModalBox(width, title, content)
}

func renderAlertModal(width int, text string) string {
	help := styleMuted().Width(modalBodyWidth(width)).Render("enter/esc: dismiss")
	return renderModalBox(width, "Notice", text+"\n\n"+help)
}

// renderHelpModal shows pre-rendered markdown cut to height lines starting at offset.
func renderHelpModal(width, height int, rendered string, offset int) string {
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	maxLines := height - 8
	if maxLines < 5 {
		maxLines = 5
	}
	if offset > len(lines)-1 {
		offset = len(lines) - 1
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + maxLines
	if end > len(lines) {
		end = len(lines)
	}
	bodyW := modalBodyWidth(width)
	body := normalizePane(strings.Join(lines[offset:end], "\n"), bodyW, 0)
	help := styleMuted().Width(bodyW).Render("j/k: scroll   esc/?/q: close")
	return renderModalBox(width, "Help", body+"\n\n"+help)
}
