package tui

import (
	"context"
	"time"

	"item-console/internal/console"
	"item-console/internal/model"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type appModel struct {
	ctx     context.Context
	actions actions
	apiURL  string

	width  int
	height int

	focus focusArea

	table    tableState
	rows     []model.Row
	cursor   int
	selected map[string]bool

	// inputs are indexed by focusName..focusTax minus one.
	inputs []textinput.Model
	// editingID is the hidden item_id field, set by the edit action.
	editingID   string
	submitState console.SubmitState
	spinner     spinner.Model

	// alerts is a FIFO; the head is shown until dismissed.
	alerts       []string
	confirm      *confirmRequestMsg
	confirmFocus confirmModalFocus
	helpOpen     bool
	helpRendered string
	helpOffset   int

	minibufferText  string
	minibufferSetAt time.Time
	minibufferSeq   int
}

func newAppModel(ctx context.Context, a actions, apiURL string) appModel {
	if ctx == nil {
		ctx = context.Background()
	}

	labels := []struct {
		placeholder string
		limit       int
	}{
		{placeholder: "name", limit: 50},
		{placeholder: "description (optional)", limit: 300},
		{placeholder: "price, e.g. 9.99", limit: 32},
		{placeholder: "tax, e.g. 0.5", limit: 32},
	}
	inputs := make([]textinput.Model, 0, len(labels))
	for _, l := range labels {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = l.placeholder
		ti.CharLimit = l.limit
		inputs = append(inputs, ti)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return appModel{
		ctx:      ctx,
		actions:  a,
		apiURL:   apiURL,
		width:    100,
		height:   30,
		focus:    focusTable,
		table:    tableLoading,
		selected: map[string]bool{},
		inputs:   inputs,
		spinner:  sp,
	}
}

func (m appModel) Init() tea.Cmd {
	return m.fetchCmd()
}

func (m appModel) activeModal() modalKind {
	switch {
	case m.confirm != nil:
		return modalConfirm
	case len(m.alerts) > 0:
		return modalAlert
	case m.helpOpen:
		return modalHelp
	default:
		return modalNone
	}
}

func (m appModel) formValues() model.FormValues {
	return model.FormValues{
		ItemID:      m.editingID,
		Name:        m.inputs[0].Value(),
		Description: m.inputs[1].Value(),
		Price:       m.inputs[2].Value(),
		Tax:         m.inputs[3].Value(),
	}
}

// selectedIDs returns the checked ids in table order.
func (m appModel) selectedIDs() []model.ItemID {
	var ids []model.ItemID
	for _, r := range m.rows {
		if m.selected[r.ItemID] {
			ids = append(ids, model.ItemID(r.ItemID))
		}
	}
	return ids
}

func (m appModel) currentRow() (model.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return model.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m appModel) fetchCmd() tea.Cmd {
	a, ctx := m.actions, m.ctx
	return func() tea.Msg {
		_, err := a.FetchAndRender(ctx)
		return actionDoneMsg{op: opRefresh, err: err}
	}
}

func (m appModel) submitCmd(form model.FormValues) tea.Cmd {
	a, ctx := m.actions, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{op: opSubmit, err: a.SubmitItem(ctx, form)}
	}
}

func (m appModel) deleteCmd(ids []model.ItemID) tea.Cmd {
	a, ctx := m.actions, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{op: opDelete, err: a.DeleteSelected(ctx, ids)}
	}
}

func (m *appModel) showMinibuffer(text string) tea.Cmd {
	m.minibufferText = text
	m.minibufferSetAt = time.Now()
	m.minibufferSeq++
	seq := m.minibufferSeq
	return tea.Tick(minibufferAutoClearAfter, func(time.Time) tea.Msg {
		return minibufferTimeoutMsg{seq: seq}
	})
}

func (m *appModel) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	var cmd tea.Cmd
	for i := range m.inputs {
		if focusArea(i+1) == f {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func (m *appModel) resetForm() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.editingID = ""
}

// loadRow fills the form from a rendered row. Placeholders become empty fields.
func (m *appModel) loadRow(r model.Row) {
	desc := r.Description
	if desc == model.DescriptionPlaceholder {
		desc = ""
	}
	price := r.Price
	if price == model.DescriptionPlaceholder {
		price = ""
	}
	m.editingID = r.ItemID
	m.inputs[0].SetValue(r.Name)
	m.inputs[1].SetValue(desc)
	m.inputs[2].SetValue(price)
	m.inputs[3].SetValue(r.Tax)
}

func (m *appModel) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
