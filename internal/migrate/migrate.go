package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/installer"
	"github.com/softfinder/softfinder-go/internal/packages"
	"github.com/softfinder/softfinder-go/internal/storage"
)

// Lister enumerates installed applications.
type Lister interface {
	List(ctx context.Context) ([]App, error)
}

// Installer runs one install command.
type Installer interface {
	Run(ctx context.Context, command string) (installer.Result, error)
}

// History stores executed operations.
type History interface {
	Append(record *storage.HistoryRecord) error
}

// AppResult is the import outcome of one app.
type AppResult struct {
	App     App               `json:"app"`
	Command string            `json:"command"`
	Outcome installer.Outcome `json:"outcome"`
	Error   string            `json:"error,omitempty"`
}

// ImportSummary groups per-app outcomes.
type ImportSummary struct {
	Total          int         `json:"total"`
	Installed      []AppResult `json:"installed"`
	Failed         []AppResult `json:"failed"`
	NeedsElevation []AppResult `json:"needs_elevation"`
}

// Status condenses the summary into a single history status.
func (s *ImportSummary) Status() string {
	switch {
	case len(s.Failed) == 0 && len(s.NeedsElevation) == 0:
		return string(installer.OutcomeSuccess)
	case len(s.Installed) == 0:
		return string(installer.OutcomeFailure)
	default:
		return "partial"
	}
}

// Service implements export and import.
type Service struct {
	lister    Lister
	installer Installer
	command   packages.CommandFunc
	history   History
	logger    *zap.Logger

	hostname func() (string, error)
	now      func() time.Time
}

// NewService wires the collaborators. command generates the catalog install
// command for a package id; history may be nil.
func NewService(lister Lister, inst Installer, command packages.CommandFunc, history History, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		lister:    lister,
		installer: inst,
		command:   command,
		history:   history,
		logger:    logger.Named("migrate"),
		hostname:  os.Hostname,
		now:       time.Now,
	}
}

// Export builds a document describing the installed applications.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	apps, err := s.lister.List(ctx)
	if err != nil {
		s.recordHistory(storage.KindExport, string(installer.OutcomeFailure), err.Error())
		return nil, err
	}

	host, err := s.hostname()
	if err != nil {
		host = "unknown"
	}

	doc := &Document{
		ExportedAt:    s.now().UTC(),
		ComputerName:  host,
		Apps:          apps,
		WingetCommand: joinCommands(apps, s.command),
		TotalApps:     len(apps),
	}

	s.logger.Info("Exported installed applications", zap.Int("apps", doc.TotalApps))
	s.recordHistory(storage.KindExport, string(installer.OutcomeSuccess), fmt.Sprintf("%d apps", doc.TotalApps))
	return doc, nil
}

// Import installs every app of doc sequentially. A failed app does not stop
// the run; cancelling ctx does, returning the partial summary with ctx.Err().
func (s *Service) Import(ctx context.Context, doc *Document) (*ImportSummary, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	summary := &ImportSummary{
		Total:          len(doc.Apps),
		Installed:      make([]AppResult, 0),
		Failed:         make([]AppResult, 0),
		NeedsElevation: make([]AppResult, 0),
	}

	for _, app := range doc.Apps {
		if err := ctx.Err(); err != nil {
			s.finishImport(summary)
			return summary, err
		}

		res := AppResult{App: app, Command: s.command(app.PackageID, "")}
		result, err := s.installer.Run(ctx, res.Command)
		if err != nil {
			res.Outcome = installer.OutcomeFailure
			res.Error = err.Error()
		} else {
			res.Outcome = result.Outcome
			res.Error = result.Error
		}

		switch res.Outcome {
		case installer.OutcomeSuccess:
			summary.Installed = append(summary.Installed, res)
		case installer.OutcomeNeedsElevation:
			summary.NeedsElevation = append(summary.NeedsElevation, res)
		default:
			summary.Failed = append(summary.Failed, res)
		}
	}

	s.finishImport(summary)
	return summary, nil
}

func (s *Service) finishImport(summary *ImportSummary) {
	detail := fmt.Sprintf("%d installed, %d failed, %d need elevation",
		len(summary.Installed), len(summary.Failed), len(summary.NeedsElevation))
	s.logger.Info("Import finished",
		zap.Int("total", summary.Total),
		zap.Int("installed", len(summary.Installed)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("needs_elevation", len(summary.NeedsElevation)))
	s.recordHistory(storage.KindImport, summary.Status(), detail)
}

func (s *Service) recordHistory(kind storage.HistoryKind, status, detail string) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(&storage.HistoryRecord{Kind: kind, Status: status, Detail: detail}); err != nil {
		s.logger.Warn("Failed to record history", zap.String("kind", string(kind)), zap.Error(err))
	}
}
