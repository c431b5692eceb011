package tui

import (
	"strings"

	"github.com/atotto/clipboard"
)

// copyToClipboard is a var so tests can capture writes.
var copyToClipboard = func(s string) error {
	if clipboard.Unsupported {
		return errClipboardUnsupported
	}
	return clipboard.WriteAll(strings.ReplaceAll(s, "\r\n", "\n"))
}
