package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"item-console/internal/model"

	"github.com/sirupsen/logrus"
)

// maxErrorBody bounds how much of an error response is kept in a StatusError.
const maxErrorBody = 512

type Options struct {
	BaseURL string
	// Origin, when set, is sent with every request like a browser in CORS mode would.
	Origin string
	// Timeout of zero means requests may wait forever.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// MutationResult is the body returned by create and update.
type MutationResult struct {
	Message string       `json:"message,omitempty"`
	ItemID  model.ItemID `json:"item_id,omitempty"`
}

// Client talks to the items service:
//
//	GET    /items/
//	POST   /items/
//	PUT    /items/{item_id}
//	DELETE /items/{item_id}
type Client struct {
	baseURL string
	origin  string
	http    *http.Client
	log     *logrus.Logger
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		origin:  strings.TrimSpace(opts.Origin),
		http:    hc,
		log:     log,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) itemsURL() string { return c.baseURL + "/items/" }

func (c *Client) itemURL(id model.ItemID) string {
	return c.baseURL + "/items/" + url.PathEscape(id.String())
}

// List returns every stored item in server order.
func (c *Client) List(ctx context.Context) ([]model.StoredItem, error) {
	var items []model.StoredItem
	if err := c.do(ctx, http.MethodGet, c.itemsURL(), nil, &items); err != nil {
		return nil, err
	}
	c.log.Debugf("ItemsClient: listed %d items", len(items))
	return items, nil
}

func (c *Client) Create(ctx context.Context, item model.Item) (MutationResult, error) {
	var res MutationResult
	if err := c.do(ctx, http.MethodPost, c.itemsURL(), item, &res); err != nil {
		return MutationResult{}, err
	}
	c.log.WithField("item_id", res.ItemID.String()).Infof("ItemsClient: created item %q", item.Name)
	return res, nil
}

// Update replaces every field of the item with the given id.
func (c *Client) Update(ctx context.Context, id model.ItemID, item model.Item) (MutationResult, error) {
	var res MutationResult
	if err := c.do(ctx, http.MethodPut, c.itemURL(id), item, &res); err != nil {
		return MutationResult{}, err
	}
	c.log.WithField("item_id", id.String()).Infof("ItemsClient: updated item %q", item.Name)
	return res, nil
}

// Delete only consults the status code; the body is ignored.
func (c *Client) Delete(ctx context.Context, id model.ItemID) error {
	if err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil, nil); err != nil {
		return err
	}
	c.log.WithField("item_id", id.String()).Info("ItemsClient: deleted item")
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, u, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, u, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	c.log.Debugf("ItemsClient: %s %s", method, u)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorf("ItemsClient: %s %s failed: %v", method, u, err)
		return &TransportError{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Errorf("ItemsClient: %s %s returned status %d", method, u, resp.StatusCode)
		return &StatusError{Method: method, URL: u, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Errorf("ItemsClient: failed to decode %s %s response: %v", method, u, err)
		return &DecodeError{Method: method, URL: u, Err: err}
	}
	return nil
}
