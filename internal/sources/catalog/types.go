package catalog

import (
	"strings"

	"github.com/softfinder/softfinder-go/internal/packages"
)

// searchResponse is the body of GET /v2/packages.
type searchResponse struct {
	Packages []packageEntry `json:"Packages"`
	Total    int            `json:"Total"`
}

type packageEntry struct {
	ID       string        `json:"Id"`
	Versions []string      `json:"Versions"`
	Latest   latestVersion `json:"Latest"`
}

type latestVersion struct {
	Name        string   `json:"Name"`
	Publisher   string   `json:"Publisher"`
	Tags        []string `json:"Tags"`
	Description string   `json:"Description"`
	Homepage    string   `json:"Homepage"`
	License     string   `json:"License"`
	LicenseURL  string   `json:"LicenseUrl"`
}

func (e packageEntry) toRecord() packages.Record {
	name := strings.TrimSpace(e.Latest.Name)
	if name == "" {
		name = unknownPackage
	}
	publisher := strings.TrimSpace(e.Latest.Publisher)
	if publisher == "" {
		publisher = unknownPublisher
	}
	tags := e.Latest.Tags
	if tags == nil {
		tags = []string{}
	}

	return packages.NewRecord(packages.Record{
		Name:        name,
		Publisher:   publisher,
		PackageID:   e.ID,
		Source:      packages.SourceCatalog,
		Versions:    e.Versions,
		Description: e.Latest.Description,
		License:     e.Latest.License,
		LicenseURL:  e.Latest.LicenseURL,
		Tags:        tags,
		Homepage:    e.Latest.Homepage,
	}, Command)
}
