// Package packages holds the normalized data model shared by every search source,
// the fallback chain and the resolution orchestrator.
package packages

// Source identifies which backend produced a record.
type Source string

const (
	SourceCatalog   Source = "catalog"
	SourceSecondary Source = "secondary-repo"
	SourceWeb       Source = "web"
)

// RepositorySources lists the package sources in merge order.
var RepositorySources = []Source{SourceCatalog, SourceSecondary}

// Valid reports whether s is a known source identifier.
func (s Source) Valid() bool {
	switch s {
	case SourceCatalog, SourceSecondary, SourceWeb:
		return true
	}
	return false
}

// ParseSource maps user input (including short aliases) to a Source.
func ParseSource(value string) (Source, error) {
	switch value {
	case "catalog", "winget":
		return SourceCatalog, nil
	case "secondary-repo", "secondary", "choco", "chocolatey":
		return SourceSecondary, nil
	case "web":
		return SourceWeb, nil
	}
	return "", &ValidationError{Field: "source", Message: "unknown source '" + value + "'"}
}

// Record is the normalized unit returned by a repository source or the fallback chain.
type Record struct {
	Name            string       `json:"name" yaml:"name"`
	Publisher       string       `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	PackageID       string       `json:"packageId,omitempty" yaml:"packageId,omitempty"`
	Source          Source       `json:"source" yaml:"source"`
	Versions        []string     `json:"versions,omitempty" yaml:"versions,omitempty"`
	LatestVersion   string       `json:"latestVersion,omitempty" yaml:"latestVersion,omitempty"`
	SelectedVersion string       `json:"selectedVersion,omitempty" yaml:"selectedVersion,omitempty"`
	InstallCommand  string       `json:"installCommand,omitempty" yaml:"installCommand,omitempty"`
	Description     string       `json:"description,omitempty" yaml:"description,omitempty"`
	License         string       `json:"license,omitempty" yaml:"license,omitempty"`
	LicenseURL      string       `json:"licenseUrl,omitempty" yaml:"licenseUrl,omitempty"`
	Tags            []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Homepage        string       `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	OfficialURL     string       `json:"officialUrl,omitempty" yaml:"officialUrl,omitempty"`
	SearchLinks     []SearchLink `json:"searchLinks,omitempty" yaml:"searchLinks,omitempty"`
	Diagnostic      string       `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
}

// SearchLink is one engine entry of a web-search fallback record.
type SearchLink struct {
	Engine string `json:"engine" yaml:"engine"`
	URL    string `json:"url" yaml:"url"`
}

// CommandFunc builds the install command for a package id and optional version.
type CommandFunc func(packageID, version string) string

// NewRecord sets the derived version fields and install command of r.
func NewRecord(r Record, command CommandFunc) Record {
	r.Versions = cloneStrings(r.Versions)
	r.Tags = cloneStrings(r.Tags)
	if len(r.Versions) > 0 {
		r.LatestVersion = r.Versions[0]
		r.SelectedVersion = r.Versions[0]
	}
	if command != nil {
		r.InstallCommand = command(r.PackageID, "")
	}
	return r
}

// WithSelectedVersion returns a copy of r pinned to version. The version flag is only
// emitted when the selection differs from the latest version.
func (r Record) WithSelectedVersion(version string, command CommandFunc) Record {
	out := r
	out.Versions = cloneStrings(r.Versions)
	out.Tags = cloneStrings(r.Tags)
	out.SelectedVersion = version
	if command != nil {
		pinned := version
		if pinned == r.LatestVersion {
			pinned = ""
		}
		out.InstallCommand = command(r.PackageID, pinned)
	}
	return out
}

// Page is one page of records from a single source.
type Page struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
}

// Clone returns a deep copy so cached pages are never mutated by callers.
func (p Page) Clone() Page {
	out := Page{Total: p.Total}
	if p.Records != nil {
		out.Records = make([]Record, len(p.Records))
		for i, r := range p.Records {
			r.Versions = cloneStrings(r.Versions)
			r.Tags = cloneStrings(r.Tags)
			r.SearchLinks = append([]SearchLink(nil), r.SearchLinks...)
			out.Records[i] = r
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
