package tui

import (
	"context"

	"item-console/internal/console"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// APIURL is only displayed in the header.
	APIURL string
	Logger *logrus.Logger
}

// Run starts the interactive console against api and blocks until the user quits.
func Run(ctx context.Context, api console.ItemsAPI, opts Options) error {
	applyThemePreference()
	applyColorProfilePreference()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := &teaView{}
	c := console.New(api, view, opts.Logger)

	m := newAppModel(ctx, c, opts.APIURL)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	view.bind(p.Send)

	_, err := p.Run()
	return err
}
