package tui

import (
	"errors"
	"fmt"

	"item-console/internal/console"
	"item-console/internal/docs"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadingMsg:
		m.table = tableLoading
		m.rows = nil
		m.selected = map[string]bool{}
		return m, m.spinner.Tick

	case rowsMsg:
		m.table = tableReady
		m.rows = msg.rows
		m.selected = map[string]bool{}
		m.clampCursor()
		return m, nil

	case failureMsg:
		m.table = tableFailed
		m.rows = nil
		m.selected = map[string]bool{}
		m.cursor = 0
		return m, nil

	case alertMsg:
		m.alerts = append(m.alerts, msg.text)
		return m, nil

	case confirmRequestMsg:
		if m.confirm != nil {
			// Only one prompt at a time; a second one is declined.
			msg.reply <- false
			return m, nil
		}
		req := msg
		m.confirm = &req
		m.confirmFocus = confirmFocusConfirm
		return m, nil

	case resetFormMsg:
		m.resetForm()
		return m, nil

	case submitStateMsg:
		m.submitState = msg.state
		if msg.state == console.Submitting {
			return m, m.spinner.Tick
		}
		return m, nil

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case minibufferTimeoutMsg:
		if msg.seq == m.minibufferSeq {
			m.minibufferText = ""
		}
		return m, nil

	case spinner.TickMsg:
		if m.submitState != console.Submitting && m.table != tableLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m, nil
}

// handleActionDone reports outcomes the console does not alert on itself.
func (m appModel) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		return m, nil
	case errors.Is(msg.err, console.ErrSubmitInProgress):
		cmd := m.showMinibuffer("A submit is already in progress")
		return m, cmd
	case errors.Is(msg.err, console.ErrDeleteDeclined):
		cmd := m.showMinibuffer("Delete cancelled")
		return m, cmd
	default:
		return m, nil
	}
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.declinePendingConfirm()
		return m, tea.Quit
	}

	switch m.activeModal() {
	case modalConfirm:
		return m.updateConfirmKey(msg)
	case modalAlert:
		switch msg.String() {
		case "enter", "esc", " ", "q":
			m.alerts = m.alerts[1:]
		}
		return m, nil
	case modalHelp:
		switch msg.String() {
		case "esc", "?", "q":
			m.helpOpen = false
		case "j", "down":
			m.helpOffset++
		case "k", "up":
			if m.helpOffset > 0 {
				m.helpOffset--
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "tab":
		cmd := m.setFocus((m.focus + 1) % focusCount)
		return m, cmd
	case "shift+tab":
		cmd := m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, cmd
	case "ctrl+s":
		return m, m.submitCmd(m.formValues())
	}

	if m.focus == focusTable {
		return m.updateTableKey(msg)
	}
	return m.updateFormKey(msg)
}

func (m *appModel) declinePendingConfirm() {
	if m.confirm != nil {
		m.confirm.reply <- false
		m.confirm = nil
	}
}

func (m appModel) updateConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	answer := func(ok bool) (tea.Model, tea.Cmd) {
		m.confirm.reply <- ok
		m.confirm = nil
		return m, nil
	}
	switch msg.String() {
	case "y":
		return answer(true)
	case "n", "esc", "ctrl+g":
		return answer(false)
	case "enter":
		return answer(m.confirmFocus == confirmFocusConfirm)
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
	}
	return m, nil
}

func (m appModel) updateTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.rows) - 1
		m.clampCursor()
	case " ", "space":
		if r, ok := m.currentRow(); ok {
			if m.selected[r.ItemID] {
				delete(m.selected, r.ItemID)
			} else {
				m.selected[r.ItemID] = true
			}
		}
	case "a":
		if len(m.rows) > 0 && len(m.selectedIDs()) == len(m.rows) {
			m.selected = map[string]bool{}
		} else {
			for _, r := range m.rows {
				m.selected[r.ItemID] = true
			}
		}
	case "e":
		if r, ok := m.currentRow(); ok {
			m.loadRow(r)
			cmd := m.setFocus(focusName)
			return m, cmd
		}
	case "y":
		if r, ok := m.currentRow(); ok {
			if err := copyToClipboard(r.ItemID); err != nil {
				cmd := m.showMinibuffer(fmt.Sprintf("Copy failed: %v", err))
				return m, cmd
			}
			cmd := m.showMinibuffer("Copied " + r.ItemID)
			return m, cmd
		}
	case "d", "delete":
		return m, m.deleteCmd(m.selectedIDs())
	case "r":
		return m, m.fetchCmd()
	case "?":
		return m.openHelp()
	case "enter":
		cmd := m.setFocus(focusName)
		return m, cmd
	}
	return m, nil
}

func (m appModel) updateFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.submitCmd(m.formValues())
	case "esc":
		m.resetForm()
		cmd := m.setFocus(focusTable)
		return m, cmd
	case "up":
		if m.focus > focusName {
			cmd := m.setFocus(m.focus - 1)
			return m, cmd
		}
		return m, nil
	case "down":
		if m.focus < focusTax {
			cmd := m.setFocus(m.focus + 1)
			return m, cmd
		}
		return m, nil
	}

	i := int(m.focus) - 1
	var cmd tea.Cmd
	m.inputs[i], cmd = m.inputs[i].Update(msg)
	return m, cmd
}

func (m appModel) openHelp() (tea.Model, tea.Cmd) {
	src, ok := docs.Get("console")
	if !ok {
		cmd := m.showMinibuffer("Help is not available")
		return m, cmd
	}
	out, err := docs.Render(src, glamourStyle(), modalBodyWidth(m.width))
	if err != nil {
		out = src
	}
	m.helpRendered = out
	m.helpOffset = 0
	m.helpOpen = true
	return m, nil
}
