package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/internal/models"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
	"github.com/yourlocalmaccas/School-Website/pkg/export"
	"github.com/yourlocalmaccas/School-Website/pkg/storage"
)

var rosterHeaders = []string{"Name", "Email", "Phone", "Sport"}

// Year levels listed first in a roster, in this order.
var rosterYearOrder = []string{"7", "8", "9", "10"}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// RosterFile is a rendered roster ready to be served.
type RosterFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
}

// ExportService builds term rosters and persists rendered files.
type ExportService struct {
	terms    termReader
	students studentLister
	storage  fileStorage
	signer   *storage.SignedURLSigner
	csv      datasetRenderer
	pdf      datasetRenderer
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService. storage and signer are only
// needed for stored exports.
func NewExportService(terms termReader, students studentLister, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		terms:    terms,
		students: students,
		storage:  store,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		cfg:      cfg,
	}
}

// Roster renders every student of a term in the requested format.
func (s *ExportService) Roster(ctx context.Context, termID string, format models.ExportFormat) (*RosterFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if !isUUID(termID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
	}
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	students, err := s.students.List(ctx, models.StudentFilter{TermID: termID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	dataset := buildRoster(term, students)
	var payload []byte
	switch format {
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &RosterFile{
		Filename:    rosterFilename(term, format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}

// Generate renders the job's roster, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	file, err := s.Roster(ctx, job.TermID, job.Format)
	if err != nil {
		return nil, err
	}
	relPath, err := s.storage.Save(job.ID+"/"+file.Filename, file.Data)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (*storage.Grant, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func buildRoster(term *models.Term, students []models.StudentRow) export.Dataset {
	byYear := make(map[string][]models.StudentRow)
	for _, student := range students {
		byYear[student.Year] = append(byYear[student.Year], student)
	}

	years := make([]string, 0, len(byYear))
	known := make(map[string]bool, len(rosterYearOrder))
	for _, year := range rosterYearOrder {
		known[year] = true
		if _, ok := byYear[year]; ok {
			years = append(years, year)
		}
	}
	var others []string
	for year := range byYear {
		if !known[year] {
			others = append(others, year)
		}
	}
	sort.Strings(others)
	years = append(years, others...)

	sections := make([]export.Section, 0, len(years))
	for _, year := range years {
		group := byYear[year]
		sortByLastName(group)
		rows := make([]map[string]string, 0, len(group))
		for _, student := range group {
			sport := ""
			if student.SportName != nil {
				sport = *student.SportName
			} else if student.Waitlisted {
				sport = "Waitlist"
			}
			rows = append(rows, map[string]string{
				"Name":  student.Name,
				"Email": student.Email,
				"Phone": student.Phone,
				"Sport": sport,
			})
		}
		sections = append(sections, export.Section{Title: "Year " + year, Rows: rows})
	}

	return export.Dataset{
		Title:    fmt.Sprintf("Sports registrations %s %d", term.Name, term.Year),
		Headers:  rosterHeaders,
		Sections: sections,
	}
}

func rosterFilename(term *models.Term, format models.ExportFormat) string {
	return fmt.Sprintf("sports_data_%s_%d.%s", sanitizeFilename(term.Name), term.Year, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
