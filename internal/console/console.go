package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"item-console/internal/apiclient"
	"item-console/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// User-facing texts.
const (
	LoadingText        = "Loading..."
	LoadFailedText     = "Failed to load items."
	SubmitLabel        = "Submit Item"
	SubmittingLabel    = "Processing..."
	DefaultSuccessText = "Operation successful"
	NoSelectionText    = "No items selected for deletion."
	DeletedText        = "Selected items deleted successfully."
)

var (
	// ErrSubmitInProgress is returned when a submit is attempted while another is in flight.
	ErrSubmitInProgress = errors.New("submit already in progress")
	// ErrNoSelection is returned by DeleteSelected for an empty selection.
	ErrNoSelection = errors.New("no items selected")
	// ErrDeleteDeclined is returned when the user answers no to the delete prompt.
	ErrDeleteDeclined = errors.New("delete declined")
)

// SubmitState is the state of the submit control.
type SubmitState int

const (
	Idle SubmitState = iota
	Submitting
)

func (s SubmitState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Label is the text the submit control shows in this state.
func (s SubmitState) Label() string {
	if s == Submitting {
		return SubmittingLabel
	}
	return SubmitLabel
}

// ItemsAPI is the part of the items service the console needs.
type ItemsAPI interface {
	List(ctx context.Context) ([]model.StoredItem, error)
	Create(ctx context.Context, item model.Item) (apiclient.MutationResult, error)
	Update(ctx context.Context, id model.ItemID, item model.Item) (apiclient.MutationResult, error)
	Delete(ctx context.Context, id model.ItemID) error
}

// View is the surface the console renders to. Implementations must be safe to call
// from any goroutine.
type View interface {
	ShowLoading()
	ShowRows(rows []model.Row)
	ShowFailure()
	Alert(msg string)
	// Confirm asks a yes/no question and blocks until answered or ctx is done.
	Confirm(ctx context.Context, msg string) bool
	ResetForm()
	SetSubmitState(state SubmitState)
}

// Console drives the three user actions against the items service. It keeps no
// copy of the items: every action ends in a full re-fetch.
type Console struct {
	api  ItemsAPI
	view View
	log  *logrus.Logger

	mu    sync.Mutex
	state SubmitState
}

func New(api ItemsAPI, view View, logger *logrus.Logger) *Console {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Console{api: api, view: view, log: logger}
}

func (c *Console) State() SubmitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FetchAndRender replaces the table with the current server state.
func (c *Console) FetchAndRender(ctx context.Context) ([]model.Row, error) {
	c.view.ShowLoading()

	items, err := c.api.List(ctx)
	if err != nil {
		c.log.WithError(err).Error("Console: error fetching items")
		c.view.Alert(fmt.Sprintf("Failed to fetch items: %v", err))
		c.view.ShowFailure()
		return nil, err
	}

	rows := model.Rows(items)
	c.view.ShowRows(rows)
	return rows, nil
}

// SubmitItem creates the item, or replaces the first existing item with the same name.
func (c *Console) SubmitItem(ctx context.Context, form model.FormValues) error {
	if !c.enterSubmitting() {
		c.log.Debug("Console: submit ignored, another submit is in flight")
		return ErrSubmitInProgress
	}

	msg, err := c.upsert(ctx, form)
	if err != nil {
		c.log.WithError(err).Error("Console: submit failed")
		c.view.Alert(fmt.Sprintf("An error occurred: %v", err))
		// The form stays populated so the user can retry.
		c.leaveSubmitting()
		return err
	}

	if msg == "" {
		msg = DefaultSuccessText
	}
	c.view.Alert(msg)
	c.view.ResetForm()
	c.leaveSubmitting()

	// A failed refresh was already reported by FetchAndRender; the submit itself succeeded.
	_, _ = c.FetchAndRender(ctx)
	return nil
}

func (c *Console) upsert(ctx context.Context, form model.FormValues) (string, error) {
	item := form.Item()

	existing, err := c.api.List(ctx)
	if err != nil {
		return "", err
	}

	var res apiclient.MutationResult
	if match, ok := model.FindByName(existing, form.Name); ok {
		c.log.WithField("item_id", match.ItemID.String()).Debugf("Console: %q exists, updating", form.Name)
		res, err = c.api.Update(ctx, match.ItemID, item)
	} else {
		c.log.Debugf("Console: %q not found, creating", form.Name)
		res, err = c.api.Create(ctx, item)
	}
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (c *Console) enterSubmitting() bool {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return false
	}
	c.state = Submitting
	c.mu.Unlock()

	c.view.SetSubmitState(Submitting)
	return true
}

func (c *Console) leaveSubmitting() {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()

	c.view.SetSubmitState(Idle)
}

// DeleteSelected deletes every id concurrently after confirmation. The batch only
// succeeds if every request does; nothing is retried or rolled back.
func (c *Console) DeleteSelected(ctx context.Context, ids []model.ItemID) error {
	if len(ids) == 0 {
		c.view.Alert(NoSelectionText)
		return ErrNoSelection
	}

	if !c.view.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete %d item(s)?", len(ids))) {
		return ErrDeleteDeclined
	}

	// Not errgroup.WithContext: one failure must not cancel the deletes still in flight.
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return c.api.Delete(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		c.log.WithError(err).Errorf("Console: deleting %d items failed", len(ids))
		c.view.Alert(fmt.Sprintf("Failed to delete items: %v", err))
		return err
	}

	c.view.Alert(DeletedText)
	_, _ = c.FetchAndRender(ctx)
	return nil
}
