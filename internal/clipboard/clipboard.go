// Package clipboard copies answers to the system clipboard through the
// platform's copy utility.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no copy utility is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// command is a copy utility and the arguments that make it read stdin.
type command struct {
	name string
	args []string
}

// candidates lists copy utilities per GOOS in order of preference.
var candidates = map[string][]command{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
}

// Copier writes text to the clipboard.
type Copier struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args []string, stdin string) error
}

// New returns a Copier for the running platform.
func New() *Copier {
	return &Copier{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

func runCommand(name string, args []string, stdin string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Copier) resolve() (command, bool) {
	for _, cand := range candidates[c.goos] {
		if _, err := c.lookPath(cand.name); err == nil {
			return cand, true
		}
	}
	return command{}, false
}

// Available reports whether a copy utility was found.
func (c *Copier) Available() bool {
	_, ok := c.resolve()
	return ok
}

// Copy writes text to the clipboard.
func (c *Copier) Copy(text string) error {
	cmd, ok := c.resolve()
	if !ok {
		return ErrClipboardUnavailable
	}
	return c.run(cmd.name, cmd.args, text)
}
