package tui

import (
	"context"
	"errors"
	"time"

	"item-console/internal/console"
	"item-console/internal/model"
)

// actions is the console surface the TUI drives. *console.Console implements it.
type actions interface {
	FetchAndRender(ctx context.Context) ([]model.Row, error)
	SubmitItem(ctx context.Context, form model.FormValues) error
	DeleteSelected(ctx context.Context, ids []model.ItemID) error
}

var errClipboardUnsupported = errors.New("clipboard not supported on this system")

const minibufferAutoClearAfter = 4 * time.Second

type focusArea int

const (
	focusTable focusArea = iota
	focusName
	focusDescription
	focusPrice
	focusTax
	focusCount
)

type tableState int

const (
	tableLoading tableState = iota
	tableReady
	tableFailed
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirm
	modalAlert
	modalHelp
)

type actionOp string

const (
	opRefresh actionOp = "refresh"
	opSubmit  actionOp = "submit"
	opDelete  actionOp = "delete"
)

// Messages posted by teaView on behalf of the console.
type (
	loadingMsg struct{}

	rowsMsg struct{ rows []model.Row }

	failureMsg struct{}

	alertMsg struct{ text string }

	// confirmRequestMsg carries a buffered reply channel; Update answers it exactly once.
	confirmRequestMsg struct {
		text  string
		reply chan bool
	}

	resetFormMsg struct{}

	submitStateMsg struct{ state console.SubmitState }
)

// actionDoneMsg is returned by the command goroutine once a console call returns.
type actionDoneMsg struct {
	op  actionOp
	err error
}

type minibufferTimeoutMsg struct{ seq int }
