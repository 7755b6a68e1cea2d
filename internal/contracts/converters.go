package contracts

import (
	"github.com/softfinder/softfinder-go/internal/installer"
	"github.com/softfinder/softfinder-go/internal/migrate"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/resolver"
	"github.com/softfinder/softfinder-go/internal/storage"
)

// NewSuccessResponse wraps data in a successful envelope
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse wraps message in a failed envelope
func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// ConvertSearchResult maps an orchestrator result to its API body
func ConvertSearchResult(r resolver.Result) SearchResponse {
	resp := SearchResponse{
		Query:        r.Query,
		Page:         r.Page,
		Limit:        r.Limit,
		Total:        r.Total,
		HasMore:      r.HasMore(),
		Status:       string(r.Status),
		FallbackUsed: r.FallbackUsed,
		Records:      r.Records,
	}
	if resp.Records == nil {
		resp.Records = []packages.Record{}
	}
	for _, d := range r.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, Diagnostic{Source: string(d.Source), Error: d.Error})
	}
	return resp
}

// ConvertInstallResult maps an executor result to its API body
func ConvertInstallResult(r installer.Result) InstallResponse {
	return InstallResponse{
		Command:    r.Command,
		PackageID:  r.PackageID,
		Outcome:    string(r.Outcome),
		ExitCode:   r.ExitCode,
		Output:     r.Output,
		Error:      r.Error,
		DurationMs: r.Duration.Milliseconds(),
		HistoryID:  r.HistoryID,
	}
}

// ConvertImportSummary maps an import summary to its API body
func ConvertImportSummary(s *migrate.ImportSummary) ImportResponse {
	return ImportResponse{
		Status:         s.Status(),
		Total:          s.Total,
		Installed:      convertAppResults(s.Installed),
		Failed:         convertAppResults(s.Failed),
		NeedsElevation: convertAppResults(s.NeedsElevation),
	}
}

func convertAppResults(in []migrate.AppResult) []ImportAppResult {
	out := make([]ImportAppResult, 0, len(in))
	for _, r := range in {
		out = append(out, ImportAppResult{
			Name:      r.App.Name,
			PackageID: r.App.PackageID,
			Command:   r.Command,
			Outcome:   string(r.Outcome),
			Error:     r.Error,
		})
	}
	return out
}

// ConvertHistory maps stored records to API entries
func ConvertHistory(records []*storage.HistoryRecord) HistoryResponse {
	entries := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, HistoryEntry{
			ID:        r.ID,
			Kind:      string(r.Kind),
			Command:   r.Command,
			PackageID: r.PackageID,
			Status:    r.Status,
			Detail:    r.Detail,
			Created:   r.Created,
		})
	}
	return HistoryResponse{Entries: entries, Count: len(entries)}
}
