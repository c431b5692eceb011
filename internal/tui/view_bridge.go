package tui

import (
	"context"
	"sync"

	"item-console/internal/console"
	"item-console/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

// teaView implements console.View by posting messages into the running program.
// The console runs inside tea.Cmd goroutines, so every method may block on send
// until the event loop picks the message up.
type teaView struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ console.View = (*teaView)(nil)

// bind must be called with (*tea.Program).Send before the program starts.
func (v *teaView) bind(send func(tea.Msg)) {
	v.mu.Lock()
	v.send = send
	v.mu.Unlock()
}

func (v *teaView) post(msg tea.Msg) bool {
	v.mu.Lock()
	send := v.send
	v.mu.Unlock()
	if send == nil {
		return false
	}
	send(msg)
	return true
}

func (v *teaView) ShowLoading() { v.post(loadingMsg{}) }

func (v *teaView) ShowRows(rows []model.Row) { v.post(rowsMsg{rows: rows}) }

func (v *teaView) ShowFailure() { v.post(failureMsg{}) }

func (v *teaView) Alert(msg string) { v.post(alertMsg{text: msg}) }

func (v *teaView) ResetForm() { v.post(resetFormMsg{}) }

func (v *teaView) SetSubmitState(state console.SubmitState) {
	v.post(submitStateMsg{state: state})
}

// Confirm blocks until the confirm modal is answered. A cancelled ctx (program exit)
// counts as no.
func (v *teaView) Confirm(ctx context.Context, msg string) bool {
	reply := make(chan bool, 1)
	if !v.post(confirmRequestMsg{text: msg, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}
