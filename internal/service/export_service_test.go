package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/internal/repository"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
	"github.com/yourlocalmaccas/School-Website/pkg/jobs"
	"github.com/yourlocalmaccas/School-Website/pkg/storage"
)

func strPtr(s string) *string {
	return &s
}

func rosterStudents(termID string) []models.StudentRow {
	return []models.StudentRow{
		{Student: models.Student{TermID: termID, Name: "Zed Young", Email: "zed@example.com", Phone: "0400", Year: "8"}, SportName: strPtr("Netball")},
		{Student: models.Student{TermID: termID, Name: "Amy Able", Email: "amy@example.com", Phone: "0401", Year: "8"}, SportName: strPtr("Soccer")},
		{Student: models.Student{TermID: termID, Name: "Ben Cole", Email: "ben@example.com", Phone: "0402", Year: "10", Waitlisted: true}},
		{Student: models.Student{TermID: termID, Name: "Cat Dunn", Email: "cat@example.com", Phone: "0403", Year: "12"}, SportName: strPtr("Tennis")},
		{Student: models.Student{TermID: termID, Name: "Dan East", Email: "dan@example.com", Phone: "0404", Year: "7"}, SportName: strPtr("Soccer")},
	}
}

func newExportServiceForTest(t *testing.T) (*ExportService, models.Term) {
	t.Helper()
	term := models.Term{ID: uuid.NewString(), Name: "Term 1", Year: 2026, IsActive: true}
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	students := &mockStudentLister{rows: rosterStudents(term.ID)}
	svc := NewExportService(newMockTermRepo(term), students, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	return svc, term
}

func TestExportServiceRosterCSVGroupsByYear(t *testing.T) {
	svc, term := newExportServiceForTest(t)

	file, err := svc.Roster(context.Background(), term.ID, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sports_data_Term_1_2026.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	expected := strings.Join([]string{
		"Year 7",
		"Name,Email,Phone,Sport",
		"Dan East,dan@example.com,0404,Soccer",
		"",
		"Year 8",
		"Name,Email,Phone,Sport",
		"Amy Able,amy@example.com,0401,Soccer",
		"Zed Young,zed@example.com,0400,Netball",
		"",
		"Year 10",
		"Name,Email,Phone,Sport",
		"Ben Cole,ben@example.com,0402,Waitlist",
		"",
		"Year 12",
		"Name,Email,Phone,Sport",
		"Cat Dunn,cat@example.com,0403,Tennis",
		"",
	}, "\n")
	assert.Equal(t, expected, string(file.Data))
}

func TestExportServiceRosterPDFAndValidation(t *testing.T) {
	svc, term := newExportServiceForTest(t)

	file, err := svc.Roster(context.Background(), term.ID, models.ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
	assert.Equal(t, "sports_data_Term_1_2026.pdf", file.Filename)

	_, err = svc.Roster(context.Background(), term.ID, models.ExportFormat("xlsx"))
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Roster(context.Background(), uuid.NewString(), models.ExportFormatCSV)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportServiceGenerateStoresSignedFile(t *testing.T) {
	svc, term := newExportServiceForTest(t)
	job := &models.ExportJob{ID: uuid.NewString(), TermID: term.ID, Format: models.ExportFormatCSV}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result.URL, "/api/v1/exports/download/")

	grant, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, job.ID, grant.OwnerID)

	f, err := svc.Open(grant.Path)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Dan East")
}

type memoryExportJobs struct {
	mu   sync.Mutex
	jobs map[string]models.ExportJob
}

func (m *memoryExportJobs) Create(_ context.Context, job *models.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = uuid.NewString()
	job.CreatedAt = time.Now()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memoryExportJobs) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

func (m *memoryExportJobs) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	m.jobs[id] = job
	return nil
}

func (m *memoryExportJobs) ListQueued(context.Context, int) ([]models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, job)
		}
	}
	return out, nil
}

func (m *memoryExportJobs) ListFinishedBefore(context.Context, time.Time, int) ([]models.ExportJob, error) {
	return nil, nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, *models.ExportJob) (*ExportResult, error) {
	return nil, errors.New("render failed")
}

func TestExportJobLifecycle(t *testing.T) {
	exporter, term := newExportServiceForTest(t)
	repo := &memoryExportJobs{jobs: map[string]models.ExportJob{}}
	queue := &recordingQueue{}
	metrics := NewMetricsService()
	svc := NewExportJobService(repo, newMockTermRepo(term), queue, exporter, metrics, nil, ExportJobConfig{})
	worker := NewExportWorker(repo, exporter, metrics, 2, nil)

	created, err := svc.CreateJob(context.Background(), dto.ExportRequest{TermID: term.ID, Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, created.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeRosterExport, queue.jobs[0].Type)

	require.NoError(t, worker.Handle(context.Background(), queue.jobs[0]))

	status, err := svc.GetStatus(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)
	assert.Nil(t, status.Error)

	download, err := svc.ResolveDownload(context.Background(), extractToken(*status.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "sports_data_Term_1_2026.csv", download.Filename)

	_, err = svc.ResolveDownload(context.Background(), "garbage")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	repo := &memoryExportJobs{jobs: map[string]models.ExportJob{}}
	job := &models.ExportJob{TermID: uuid.NewString(), Format: models.ExportFormatPDF, Status: models.ExportStatusQueued}
	require.NoError(t, repo.Create(context.Background(), job))
	worker := NewExportWorker(repo, failingGenerator{}, nil, 1, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID})
	require.Error(t, err)
	stored, _ := repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, models.ExportStatusQueued, stored.Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1})
	require.Error(t, err)
	stored, _ = repo.GetByID(context.Background(), job.ID)
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "render failed", *stored.ErrorMessage)
}

func TestExportJobCreateFailures(t *testing.T) {
	exporter, term := newExportServiceForTest(t)
	repo := &memoryExportJobs{jobs: map[string]models.ExportJob{}}
	queue := &recordingQueue{err: jobs.ErrNotRunning}
	svc := NewExportJobService(repo, newMockTermRepo(term), queue, exporter, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{TermID: term.ID, Format: models.ExportFormatCSV})
	require.ErrorIs(t, err, appErrors.ErrInternal)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}

	_, err = svc.CreateJob(context.Background(), dto.ExportRequest{TermID: uuid.NewString(), Format: models.ExportFormatCSV})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.CreateJob(context.Background(), dto.ExportRequest{TermID: term.ID, Format: "doc"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.GetStatus(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportJobRecoverPendingJobs(t *testing.T) {
	exporter, term := newExportServiceForTest(t)
	repo := &memoryExportJobs{jobs: map[string]models.ExportJob{}}
	queued := &models.ExportJob{TermID: term.ID, Format: models.ExportFormatCSV, Status: models.ExportStatusQueued}
	done := &models.ExportJob{TermID: term.ID, Format: models.ExportFormatCSV, Status: models.ExportStatusFinished}
	require.NoError(t, repo.Create(context.Background(), queued))
	require.NoError(t, repo.Create(context.Background(), done))
	queue := &recordingQueue{}
	svc := NewExportJobService(repo, newMockTermRepo(term), queue, exporter, nil, nil, ExportJobConfig{})

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, queued.ID, queue.jobs[0].ID)
}
