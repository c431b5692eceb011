package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"item-console/internal/console"
	"item-console/internal/model"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// cliView renders console output for one-shot commands: alerts go to stderr as they
// happen, the last rendered rows are kept for the command's output.
type cliView struct {
	notices   io.Writer
	in        io.Reader
	assumeYes bool
	log       *logrus.Logger

	mu      sync.Mutex
	rows    []model.Row
	failed  bool
	alerted bool
}

var _ console.View = (*cliView)(nil)

func newCLIView(notices io.Writer, in io.Reader, assumeYes bool, log *logrus.Logger) *cliView {
	return &cliView{notices: notices, in: in, assumeYes: assumeYes, log: log}
}

func (v *cliView) ShowLoading() {
	v.log.Debug("CLI: loading items")
}

func (v *cliView) ShowRows(rows []model.Row) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = rows
	v.failed = false
}

func (v *cliView) ShowFailure() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = nil
	v.failed = true
}

func (v *cliView) Alert(msg string) {
	v.mu.Lock()
	v.alerted = true
	v.mu.Unlock()
	fmt.Fprintln(v.notices, msg)
}

// Confirm reads y/N from the input. Non-interactive stdin without --yes is a no.
func (v *cliView) Confirm(ctx context.Context, msg string) bool {
	if v.assumeYes {
		return true
	}
	if !interactive(v.in) {
		fmt.Fprintf(v.notices, "%s (pass --yes to confirm non-interactively)\n", msg)
		return false
	}

	fmt.Fprintf(v.notices, "%s [y/N]: ", msg)
	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(v.in).ReadString('\n')
		answer <- line
	}()
	select {
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	case <-ctx.Done():
		return false
	}
}

func (v *cliView) ResetForm() {}

func (v *cliView) SetSubmitState(state console.SubmitState) {
	v.log.WithField("state", state.String()).Debug("CLI: submit state")
}

func (v *cliView) lastRows() ([]model.Row, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rows, !v.failed
}

// interactive is false only for a real file that is not a terminal (a pipe or
// /dev/null); readers supplied by tests count as interactive.
func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return in != nil
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// isTerminalWriter reports whether w is a terminal, for choosing rendered output.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// result marks err as reported when the console already alerted the user.
func (v *cliView) result(err error) error {
	v.mu.Lock()
	alerted := v.alerted
	v.mu.Unlock()
	if alerted {
		return reported(err)
	}
	return err
}
