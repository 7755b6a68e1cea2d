package packages

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

type sortableVersion struct {
	raw      string
	v        *semver.Version
	revision int // fourth numeric component, common in Chocolatey versions
}

func parseSortable(raw string) sortableVersion {
	sv := sortableVersion{raw: raw}

	parts := strings.Split(raw, ".")
	if len(parts) == 4 {
		if rev, err := strconv.Atoi(parts[3]); err == nil {
			if v, err := semver.NewVersion(strings.Join(parts[:3], ".")); err == nil {
				sv.v = v
				sv.revision = rev
				return sv
			}
		}
	}

	if v, err := semver.NewVersion(raw); err == nil {
		sv.v = v
	}
	return sv
}

func (a sortableVersion) newerThan(b sortableVersion) bool {
	switch {
	case a.v != nil && b.v != nil:
		if a.v.Equal(b.v) {
			return a.revision > b.revision
		}
		return a.v.GreaterThan(b.v)
	case a.v != nil:
		return true
	default:
		return false
	}
}

// SortVersions orders versions newest first. Entries that parse as semantic versions
// (optionally with a fourth numeric revision) are compared as such and placed ahead of
// unparseable ones, which keep their input order. Duplicates and blanks are dropped.
func SortVersions(versions []string) []string {
	seen := make(map[string]bool, len(versions))
	items := make([]sortableVersion, 0, len(versions))
	for _, raw := range versions {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		items = append(items, parseSortable(raw))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].newerThan(items[j])
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.raw
	}
	return out
}
