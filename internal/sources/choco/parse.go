package choco

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/softfinder/softfinder-go/internal/packages"
)

var summaryLine = regexp.MustCompile(`(?i)^\d+\s+packages?\s+found`)

type searchLine struct {
	id      string
	version string
}

// parseLines extracts id|version pairs from `--limit-output` text. Blank lines, the
// Chocolatey banner and the "N packages found" summary are skipped.
func parseLines(out []byte) []searchLine {
	var lines []searchLine
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || summaryLine.MatchString(line) {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			// Banner ("Chocolatey v2.2.2") and warnings carry no separator
			continue
		}
		id := strings.TrimSpace(parts[0])
		if id == "" {
			continue
		}
		lines = append(lines, searchLine{id: id, version: strings.TrimSpace(parts[1])})
	}
	return lines
}

func parseSearchOutput(out []byte) []packages.Record {
	lines := parseLines(out)
	records := make([]packages.Record, 0, len(lines))
	for _, l := range lines {
		var versions []string
		if l.version != "" {
			versions = []string{l.version}
		}
		records = append(records, packages.NewRecord(packages.Record{
			Name:      l.id,
			Publisher: unknownPublisher,
			PackageID: l.id,
			Source:    packages.SourceSecondary,
			Versions:  versions,
		}, Command))
	}
	return records
}
