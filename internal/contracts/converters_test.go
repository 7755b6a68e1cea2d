package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softfinder/softfinder-go/internal/installer"
	"github.com/softfinder/softfinder-go/internal/migrate"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/resolver"
	"github.com/softfinder/softfinder-go/internal/storage"
)

func TestConvertSearchResult(t *testing.T) {
	records := make([]packages.Record, 2)
	for i := range records {
		records[i] = packages.Record{Name: "VLC", Source: packages.SourceCatalog}
	}

	resp := ConvertSearchResult(resolver.Result{
		Query:   "vlc",
		Page:    1,
		Limit:   2,
		Total:   5,
		Records: records,
		Status:  resolver.StatusDegraded,
		Diagnostics: []resolver.Diagnostic{
			{Source: packages.SourceSecondary, Error: "chocolatey not installed"},
		},
	})

	assert.True(t, resp.HasMore)
	assert.Equal(t, "degraded", resp.Status)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, "secondary-repo", resp.Diagnostics[0].Source)
}

func TestConvertSearchResult_EmptyRecordsEncodeAsArray(t *testing.T) {
	resp := ConvertSearchResult(resolver.Result{Status: resolver.StatusEmpty})

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records":[]`)
	assert.NotContains(t, string(data), "diagnostics")
}

func TestConvertInstallResult(t *testing.T) {
	resp := ConvertInstallResult(installer.Result{
		Command:  "choco install git -y",
		Outcome:  installer.OutcomeNeedsElevation,
		ExitCode: 740,
		Duration: 1500 * time.Millisecond,
	})
	assert.Equal(t, "needs-elevation", resp.Outcome)
	assert.Equal(t, int64(1500), resp.DurationMs)
}

func TestConvertImportSummary(t *testing.T) {
	resp := ConvertImportSummary(&migrate.ImportSummary{
		Total:     2,
		Installed: []migrate.AppResult{{App: migrate.App{Name: "Git", PackageID: "Git.Git"}, Outcome: installer.OutcomeSuccess}},
		Failed:    []migrate.AppResult{{App: migrate.App{Name: "X", PackageID: "X.X"}, Outcome: installer.OutcomeFailure, Error: "exit 1"}},
	})

	assert.Equal(t, "partial", resp.Status)
	assert.Equal(t, "Git.Git", resp.Installed[0].PackageID)
	assert.Equal(t, "exit 1", resp.Failed[0].Error)
	assert.NotNil(t, resp.NeedsElevation)
	assert.Empty(t, resp.NeedsElevation)
}

func TestConvertHistory(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	resp := ConvertHistory([]*storage.HistoryRecord{
		{ID: "01J", Kind: storage.KindExport, Status: "success", Created: created},
	})

	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "export", resp.Entries[0].Kind)
	assert.Equal(t, created, resp.Entries[0].Created)

	assert.Equal(t, 0, ConvertHistory(nil).Count)
	assert.NotNil(t, ConvertHistory(nil).Entries)
}

func TestEnvelopes(t *testing.T) {
	ok := NewSuccessResponse(CacheClearResponse{Cleared: true})
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Error)

	fail := NewErrorResponse("query: must not be empty")
	assert.False(t, fail.Success)
	assert.Nil(t, fail.Data)
}
