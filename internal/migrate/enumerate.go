// Package migrate exports the list of winget-managed applications installed on
// this machine and reinstalls such a list on another one.
package migrate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cmdrunner"
)

// DefaultTimeout bounds one `winget list` run.
const DefaultTimeout = 60 * time.Second

// App is one installed application.
type App struct {
	Name      string `json:"name"`
	PackageID string `json:"packageId"`
	Version   string `json:"-"`
}

// Enumerator lists installed applications through winget.
type Enumerator struct {
	runner  cmdrunner.Runner
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewEnumerator creates an enumerator for the given winget binary.
func NewEnumerator(runner cmdrunner.Runner, binary string, timeout time.Duration, logger *zap.Logger) *Enumerator {
	if runner == nil {
		runner = cmdrunner.Exec{}
	}
	if binary == "" {
		binary = "winget"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enumerator{runner: runner, binary: binary, timeout: timeout, logger: logger}
}

// List runs `winget list` restricted to the winget source.
func (e *Enumerator) List(ctx context.Context) ([]App, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.runner.Output(ctx, e.binary,
		"list", "--source", "winget", "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		return nil, fmt.Errorf("failed to list installed applications: %w", err)
	}

	apps := ParseWingetList(out)
	e.logger.Debug("Enumerated installed applications", zap.Int("count", len(apps)))
	return apps, nil
}

var columnGap = regexp.MustCompile(`\s{2,}`)

type columns struct {
	id, version int
}

// ParseWingetList parses the fixed-width table printed by `winget list`.
// Column offsets come from the header line; rows shorter than the Id column
// fall back to splitting on runs of two or more spaces.
func ParseWingetList(out []byte) []App {
	apps := make([]App, 0)
	seen := make(map[string]bool)

	var cols *columns
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.LastIndex(line, "\r"); i >= 0 {
			line = line[i+1:]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if cols == nil {
			cols = parseHeader(line)
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "---") {
			continue
		}

		app, ok := parseRow([]rune(line), *cols)
		if !ok || seen[strings.ToLower(app.PackageID)] {
			continue
		}
		seen[strings.ToLower(app.PackageID)] = true
		apps = append(apps, app)
	}
	return apps
}

func parseHeader(line string) *columns {
	r := []rune(line)
	name := runeIndex(r, "Name")
	id := runeIndex(r, "Id")
	if name < 0 || id <= name {
		return nil
	}
	c := &columns{id: id - name, version: -1}
	if v := runeIndex(r, "Version"); v > id {
		c.version = v - name
	}
	return c
}

func parseRow(r []rune, cols columns) (App, bool) {
	if len(r) <= cols.id {
		return splitRow(string(r))
	}

	name := strings.TrimSpace(string(r[:cols.id]))
	rest := r[cols.id:]
	var id, version string
	if cols.version > cols.id && len(r) > cols.version {
		id = strings.TrimSpace(string(r[cols.id:cols.version]))
		version = firstField(string(r[cols.version:]))
	} else {
		id = firstField(string(rest))
	}

	// A space inside the id means the row is misaligned with the header.
	if strings.ContainsRune(id, ' ') {
		return splitRow(string(r))
	}
	if id == "" {
		return App{}, false
	}
	return App{Name: name, PackageID: id, Version: version}, true
}

func splitRow(line string) (App, bool) {
	fields := columnGap.Split(strings.TrimSpace(line), -1)
	if len(fields) < 2 || fields[1] == "" {
		return App{}, false
	}
	app := App{Name: fields[0], PackageID: fields[1]}
	if len(fields) > 2 {
		app.Version = fields[2]
	}
	return app, true
}

func firstField(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func runeIndex(r []rune, word string) int {
	i := strings.Index(string(r), word)
	if i < 0 {
		return -1
	}
	return len([]rune(string(r)[:i]))
}
