// Package switcher shows the task list in an external dmenu-style launcher
// (rofi, fuzzel, wofi or dmenu) and acts on the picked window.
package switcher

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

// ErrCancelled is returned when the launcher closes without a pick.
var ErrCancelled = errors.New("switcher cancelled")

// Launcher exit codes for rofi's custom key bindings.
const (
	exitMinimize = 10 // kb-custom-1, Alt+Return
	exitClose    = 11 // kb-custom-2, Alt+d
)

// Action is what to do with the picked row.
type Action int

const (
	ActionActivate Action = iota
	ActionMinimize
	ActionClose
)

func (a Action) String() string {
	switch a {
	case ActionMinimize:
		return "minimize"
	case ActionClose:
		return "close"
	}
	return "activate"
}

// Row is one line of the menu.
type Row struct {
	Label string
	// Icon is an icon theme name; application ids double as icon names.
	Icon string
	// Key identifies what the row selects. Empty for headers.
	Key     string
	Header  bool
	Current bool
	Urgent  bool
}

// Pick is the row the user chose and how.
type Pick struct {
	Row    Row
	Action Action
}

// Launcher shows rows and returns the user's pick.
type Launcher interface {
	Pick(prompt string, rows []Row) (Pick, error)
}

type launcherKind int

const (
	kindRofi launcherKind = iota
	kindFuzzel
	kindWofi
	kindDmenu
)

// Names lists the supported launchers in detection order.
var Names = []string{"rofi", "fuzzel", "wofi", "dmenu"}

type menuLauncher struct {
	command string
	kind    launcherKind
}

// NewLauncher returns the launcher called name, or the first one found in
// PATH for "" and "auto".
func NewLauncher(name string) (Launcher, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		for _, n := range Names {
			if _, err := exec.LookPath(n); err == nil {
				return newMenuLauncher(n), nil
			}
		}
		return nil, fmt.Errorf("no launcher found in PATH (looked for: %s)", strings.Join(Names, ", "))
	}
	for _, n := range Names {
		if n != name {
			continue
		}
		if _, err := exec.LookPath(n); err != nil {
			return nil, fmt.Errorf("launcher %q not found in PATH", n)
		}
		return newMenuLauncher(n), nil
	}
	return nil, fmt.Errorf("unknown launcher %q (expected: auto, %s)", name, strings.Join(Names, ", "))
}

func newMenuLauncher(name string) *menuLauncher {
	l := &menuLauncher{command: name}
	switch name {
	case "rofi":
		l.kind = kindRofi
	case "fuzzel":
		l.kind = kindFuzzel
	case "wofi":
		l.kind = kindWofi
	default:
		l.kind = kindDmenu
	}
	return l
}

// indexed reports whether the launcher prints the row index instead of its text.
func (l *menuLauncher) indexed() bool { return l.kind == kindRofi || l.kind == kindFuzzel }

func (l *menuLauncher) Pick(prompt string, rows []Row) (Pick, error) {
	if len(rows) == 0 {
		return Pick{}, errors.New("switcher: nothing to show")
	}
	rows = append([]Row(nil), rows...)
	input := l.input(rows)

	cmd := exec.Command(l.command, l.args(prompt, rows)...)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	selection := strings.TrimSpace(string(out))

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Pick{}, fmt.Errorf("%s: %w", l.command, err)
		}
		code = exitErr.ExitCode()
		if selection == "" && (code == 1 || code == 130) {
			return Pick{}, ErrCancelled
		}
		if code != exitMinimize && code != exitClose {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return Pick{}, fmt.Errorf("%s failed: %s", l.command, msg)
			}
			return Pick{}, fmt.Errorf("%s failed: %w", l.command, err)
		}
	}
	if selection == "" {
		return Pick{}, ErrCancelled
	}

	row, err := l.parse(selection, rows)
	if err != nil {
		return Pick{}, err
	}
	if row.Header {
		return Pick{}, ErrCancelled
	}
	action := ActionActivate
	switch code {
	case exitMinimize:
		action = ActionMinimize
	case exitClose:
		action = ActionClose
	}
	return Pick{Row: row, Action: action}, nil
}

func (l *menuLauncher) args(prompt string, rows []Row) []string {
	var args []string
	switch l.kind {
	case kindRofi:
		args = []string{"-dmenu", "-i", "-p", prompt, "-format", "i", "-no-custom", "-markup-rows", "-show-icons"}
		var current, urgent []int
		selected := -1
		for i, r := range rows {
			if r.Header {
				continue
			}
			if selected == -1 {
				selected = i
			}
			if r.Current {
				current = append(current, i)
			}
			if r.Urgent {
				urgent = append(urgent, i)
			}
		}
		if len(current) > 0 {
			args = append(args, "-a", joinInts(current))
		}
		if len(urgent) > 0 {
			args = append(args, "-u", joinInts(urgent))
		}
		if selected >= 0 {
			args = append(args, "-selected-row", strconv.Itoa(selected))
		}
		args = append(args,
			"-kb-custom-1", "Alt+Return",
			"-kb-custom-2", "Alt+d",
			"-mesg", "Return: activate   Alt+Return: minimize   Alt+d: close",
		)
	case kindFuzzel:
		args = []string{"--dmenu", "--prompt", prompt + " ", "--index"}
	case kindWofi:
		args = []string{"--dmenu", "--prompt", prompt, "--allow-images"}
	case kindDmenu:
		args = []string{"-i", "-p", prompt}
	}
	return args
}

// input renders rows as launcher stdin. Text-matched launchers get labels
// made unique so the pick can be mapped back.
func (l *menuLauncher) input(rows []Row) string {
	if !l.indexed() {
		seen := make(map[string]int)
		for i := range rows {
			key := cleanLabel(rows[i].Label)
			if n := seen[key]; n > 0 {
				rows[i].Label = fmt.Sprintf("%s (%d)", key, n+1)
			}
			seen[key]++
		}
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, l.line(r))
	}
	return strings.Join(lines, "\n")
}

func (l *menuLauncher) line(r Row) string {
	label := cleanLabel(r.Label)
	if l.kind != kindRofi {
		if r.Header && l.kind == kindDmenu {
			return "-- " + label + " --"
		}
		return label
	}

	// Rofi row properties: one NUL, then key\x1fvalue pairs joined by \x1f.
	label = html.EscapeString(label)
	var attrs []string
	if r.Header {
		label = "<b>" + label + "</b>"
		attrs = append(attrs, "nonselectable", "true")
	}
	if r.Icon != "" {
		attrs = append(attrs, "icon", cleanField(r.Icon))
	}
	if r.Key != "" {
		attrs = append(attrs, "info", cleanField(r.Key))
	}
	if len(attrs) == 0 {
		return label
	}
	return label + "\x00" + strings.Join(attrs, "\x1f")
}

func (l *menuLauncher) parse(selection string, rows []Row) (Row, error) {
	if l.indexed() {
		if idx, err := strconv.Atoi(selection); err == nil {
			if idx < 0 || idx >= len(rows) {
				return Row{}, fmt.Errorf("switcher: row %d out of range", idx)
			}
			return rows[idx], nil
		}
	}
	for _, r := range rows {
		if cleanLabel(r.Label) == selection || l.line(r) == selection {
			return r, nil
		}
	}
	return Row{}, fmt.Errorf("switcher: unknown selection %q", selection)
}

func cleanLabel(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func cleanField(s string) string {
	s = strings.ReplaceAll(s, "\x00", " ")
	s = strings.ReplaceAll(s, "\x1f", " ")
	return cleanLabel(s)
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, i := range v {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, ",")
}
