package tui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"item-console/internal/console"
	"item-console/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeActions struct {
	mu       sync.Mutex
	fetches  int
	submits  []model.FormValues
	deletes  [][]model.ItemID
	submitFn func() error
}

func (f *fakeActions) FetchAndRender(ctx context.Context) ([]model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return nil, nil
}

func (f *fakeActions) SubmitItem(ctx context.Context, form model.FormValues) error {
	f.mu.Lock()
	f.submits = append(f.submits, form)
	fn := f.submitFn
	f.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

func (f *fakeActions) DeleteSelected(ctx context.Context, ids []model.ItemID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ids)
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	mm, cmd := m.Update(msg)
	out, ok := mm.(appModel)
	if !ok {
		t.Fatalf("unexpected model type %T", mm)
	}
	return out, cmd
}

func sampleRows() []model.Row {
	return []model.Row{
		{ItemID: "1", Name: "Pen", Description: model.DescriptionPlaceholder, Price: "1.50", Tax: "0.00"},
		{ItemID: "2", Name: "Brush", Description: "soft", Price: model.DescriptionPlaceholder, Tax: "0.20"},
		{ItemID: "3", Name: "Ink", Description: "blue", Price: "3.00", Tax: "0.10"},
	}
}

func readyModel(t *testing.T, a actions) appModel {
	t.Helper()
	m := newAppModel(context.Background(), a, "http://localhost:8000")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, rowsMsg{rows: sampleRows()})
	return m
}

func TestInit_FetchesItems(t *testing.T) {
	t.Parallel()

	fa := &fakeActions{}
	m := newAppModel(context.Background(), fa, "")
	msg := m.Init()()
	if done, ok := msg.(actionDoneMsg); !ok || done.op != opRefresh || done.err != nil {
		t.Fatalf("unexpected init result: %#v", msg)
	}
	if fa.fetches != 1 {
		t.Fatalf("expected one fetch, got %d", fa.fetches)
	}
}

func TestTable_LoadingFailureAndRows(t *testing.T) {
	t.Parallel()

	m := newAppModel(context.Background(), &fakeActions{}, "")
	m, _ = update(t, m, loadingMsg{})
	if got := m.View(); !strings.Contains(got, console.LoadingText) {
		t.Fatalf("expected loading placeholder, got:\n%s", got)
	}

	m, _ = update(t, m, failureMsg{})
	if got := m.View(); !strings.Contains(got, console.LoadFailedText) {
		t.Fatalf("expected failure placeholder, got:\n%s", got)
	}

	m, _ = update(t, m, rowsMsg{rows: sampleRows()})
	view := m.View()
	for _, want := range []string{"Pen", "Brush", "1.50", "0.20", "N/A"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestSelection_ToggleAndDeleteInTableOrder(t *testing.T) {
	t.Parallel()

	fa := &fakeActions{}
	m := readyModel(t, fa)

	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, runes(" "))
	m, _ = update(t, m, runes("g"))
	m, _ = update(t, m, runes(" "))

	_, cmd := update(t, m, runes("d"))
	if cmd == nil {
		t.Fatalf("expected delete command")
	}
	cmd()

	want := [][]model.ItemID{{"1", "3"}}
	if !reflect.DeepEqual(fa.deletes, want) {
		t.Fatalf("deletes:\n got: %#v\nwant: %#v", fa.deletes, want)
	}
}

func TestSelection_ToggleAllAndResetOnRender(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	m, _ = update(t, m, runes("a"))
	if got := len(m.selectedIDs()); got != 3 {
		t.Fatalf("expected all 3 selected, got %d", got)
	}
	m, _ = update(t, m, runes("a"))
	if got := len(m.selectedIDs()); got != 0 {
		t.Fatalf("expected none selected, got %d", got)
	}

	m, _ = update(t, m, runes("a"))
	m, _ = update(t, m, rowsMsg{rows: sampleRows()[:2]})
	if got := len(m.selectedIDs()); got != 0 {
		t.Fatalf("selection should reset on re-render, got %d", got)
	}
}

func TestDelete_EmptySelectionStillAsksConsole(t *testing.T) {
	t.Parallel()

	fa := &fakeActions{}
	m := readyModel(t, fa)
	_, cmd := update(t, m, runes("d"))
	cmd()
	if len(fa.deletes) != 1 || len(fa.deletes[0]) != 0 {
		t.Fatalf("expected one empty delete call, got %#v", fa.deletes)
	}
}

func TestConfirmModal_Answers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []tea.KeyMsg
		want bool
	}{
		{name: "y", keys: []tea.KeyMsg{runes("y")}, want: true},
		{name: "enter", keys: []tea.KeyMsg{{Type: tea.KeyEnter}}, want: true},
		{name: "n", keys: []tea.KeyMsg{runes("n")}, want: false},
		{name: "esc", keys: []tea.KeyMsg{{Type: tea.KeyEsc}}, want: false},
		{name: "tab then enter", keys: []tea.KeyMsg{{Type: tea.KeyTab}, {Type: tea.KeyEnter}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := readyModel(t, &fakeActions{})
			reply := make(chan bool, 1)
			m, _ = update(t, m, confirmRequestMsg{text: "Are you sure you want to delete 2 item(s)?", reply: reply})
			if m.activeModal() != modalConfirm {
				t.Fatalf("expected confirm modal")
			}
			if got := m.View(); !strings.Contains(got, "delete 2 item(s)") {
				t.Fatalf("expected prompt in view:\n%s", got)
			}
			for _, k := range tt.keys {
				m, _ = update(t, m, k)
			}
			select {
			case got := <-reply:
				if got != tt.want {
					t.Fatalf("reply: got %v want %v", got, tt.want)
				}
			default:
				t.Fatalf("expected a reply")
			}
			if m.activeModal() != modalNone {
				t.Fatalf("expected modal to close")
			}
		})
	}
}

func TestConfirmModal_SecondRequestDeclined(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	first := make(chan bool, 1)
	second := make(chan bool, 1)
	m, _ = update(t, m, confirmRequestMsg{text: "one", reply: first})
	m, _ = update(t, m, confirmRequestMsg{text: "two", reply: second})
	if got := <-second; got {
		t.Fatalf("second prompt should be declined")
	}
	if m.confirm == nil || m.confirm.text != "one" {
		t.Fatalf("first prompt should stay open")
	}
}

func TestAlerts_QueueAndDismiss(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	m, _ = update(t, m, alertMsg{text: "Item updated"})
	m, _ = update(t, m, alertMsg{text: "Failed to fetch items: boom"})

	if got := m.View(); !strings.Contains(got, "Item updated") {
		t.Fatalf("expected first alert:\n%s", got)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.View(); !strings.Contains(got, "Failed to fetch items: boom") {
		t.Fatalf("expected second alert:\n%s", got)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.activeModal() != modalNone {
		t.Fatalf("expected all alerts dismissed")
	}
}

func TestEditAndSubmit_CarriesHiddenID(t *testing.T) {
	t.Parallel()

	fa := &fakeActions{}
	m := readyModel(t, fa)
	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, runes("e"))
	if m.focus != focusName || m.editingID != "2" {
		t.Fatalf("expected form focus with id 2, got focus=%v id=%q", m.focus, m.editingID)
	}
	if got := m.inputs[2].Value(); got != "" {
		t.Fatalf("price placeholder should load as empty, got %q", got)
	}

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	want := []model.FormValues{{ItemID: "2", Name: "Brush", Description: "soft", Price: "", Tax: "0.20"}}
	if !reflect.DeepEqual(fa.submits, want) {
		t.Fatalf("submits:\n got: %#v\nwant: %#v", fa.submits, want)
	}
}

func TestForm_TypingAndReset(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	for _, r := range "Pen" {
		m, _ = update(t, m, runes(string(r)))
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, runes("2"))

	got := m.formValues()
	if got.Name != "Pen" || got.Price != "2" {
		t.Fatalf("unexpected form: %#v", got)
	}

	m, _ = update(t, m, resetFormMsg{})
	if got := m.formValues(); got != (model.FormValues{}) {
		t.Fatalf("expected empty form, got %#v", got)
	}
}

func TestSubmitState_Label(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	if got := m.View(); !strings.Contains(got, console.SubmitLabel) {
		t.Fatalf("expected idle label:\n%s", got)
	}
	m, _ = update(t, m, submitStateMsg{state: console.Submitting})
	if got := m.View(); !strings.Contains(got, console.SubmittingLabel) {
		t.Fatalf("expected submitting label:\n%s", got)
	}
	m, _ = update(t, m, submitStateMsg{state: console.Idle})
	if got := m.View(); !strings.Contains(got, console.SubmitLabel) {
		t.Fatalf("expected idle label after submit:\n%s", got)
	}
}

func TestActionDone_SubmitInProgressNotice(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	m, _ = update(t, m, actionDoneMsg{op: opSubmit, err: console.ErrSubmitInProgress})
	if m.minibufferText == "" {
		t.Fatalf("expected a notice for the rejected submit")
	}
	seq := m.minibufferSeq
	m, _ = update(t, m, minibufferTimeoutMsg{seq: seq})
	if m.minibufferText != "" {
		t.Fatalf("expected notice to clear, got %q", m.minibufferText)
	}

	m, _ = update(t, m, actionDoneMsg{op: opSubmit, err: errors.New("boom")})
	if m.minibufferText != "" {
		t.Fatalf("console alerts its own failures, got notice %q", m.minibufferText)
	}
}

func TestCopyItemID(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { copyToClipboard = orig })

	m := readyModel(t, &fakeActions{})
	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, runes("y"))
	if copied != "2" {
		t.Fatalf("expected id 2 copied, got %q", copied)
	}
	if !strings.Contains(m.minibufferText, "Copied 2") {
		t.Fatalf("unexpected notice %q", m.minibufferText)
	}
}

func TestHelpModal_OpensAndCloses(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	m, _ = update(t, m, runes("?"))
	if m.activeModal() != modalHelp {
		t.Fatalf("expected help modal")
	}
	if !strings.Contains(m.View(), "Help") {
		t.Fatalf("expected help title")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.activeModal() != modalNone {
		t.Fatalf("expected help to close")
	}
}

func TestQuit_DeclinesPendingConfirm(t *testing.T) {
	t.Parallel()

	m := readyModel(t, &fakeActions{})
	reply := make(chan bool, 1)
	m, _ = update(t, m, confirmRequestMsg{text: "delete?", reply: reply})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
	if got := <-reply; got {
		t.Fatalf("pending confirm should be declined on quit")
	}
}
