package mocks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/service"
)

// MockCoverStore is an in-memory CoverStore
type MockCoverStore struct {
	mu      sync.Mutex
	Files   map[string][]byte
	Removed []string
	SaveErr error
	seq     int
}

// Verify interface compliance
var _ service.CoverStore = (*MockCoverStore)(nil)

func NewMockCoverStore() *MockCoverStore {
	return &MockCoverStore{Files: make(map[string][]byte)}
}

func (m *MockCoverStore) Save(ctx context.Context, upload *models.CoverUpload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	m.seq++
	rel := fmt.Sprintf("covers/cover-%d.png", m.seq)
	m.Files[rel] = upload.Data
	return rel, nil
}

func (m *MockCoverStore) Remove(ctx context.Context, rel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Files, rel)
	m.Removed = append(m.Removed, rel)
	return nil
}

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	ImportAllFunc func(ctx context.Context, doc []byte) (*models.ImportReport, error)
	RunImportFunc func(ctx context.Context, doc []byte, actor models.Actor, idempotencyKey string) (*models.ImportRun, error)
	Runs          map[string]*models.ImportRun
	Documents     [][]byte
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		Runs: make(map[string]*models.ImportRun),
	}
}

func (m *MockImportService) ImportAll(ctx context.Context, doc []byte) (*models.ImportReport, error) {
	if m.ImportAllFunc != nil {
		return m.ImportAllFunc(ctx, doc)
	}
	return &models.ImportReport{Errors: []string{}}, nil
}

func (m *MockImportService) RunImport(ctx context.Context, doc []byte, actor models.Actor, idempotencyKey string) (*models.ImportRun, error) {
	m.Documents = append(m.Documents, doc)
	if m.RunImportFunc != nil {
		return m.RunImportFunc(ctx, doc, actor, idempotencyKey)
	}
	run := &models.ImportRun{
		ID:             "test-run-id",
		Status:         models.ImportStatusCompleted,
		IdempotencyKey: idempotencyKey,
		ActorID:        actor.ID,
		Errors:         []string{},
	}
	m.Runs[run.ID] = run
	return run, nil
}

func (m *MockImportService) GetImportRun(ctx context.Context, id string) (*models.ImportRun, error) {
	if run, ok := m.Runs[id]; ok {
		return run, nil
	}
	return nil, service.ErrNotFound
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	Records  []models.GameExport
	WriteErr error
	Counts   map[string]int
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Records: []models.GameExport{},
		Counts: map[string]int{
			"games":    0,
			"comments": 0,
			"users":    0,
		},
	}
}

func (m *MockExportService) ExportAll(ctx context.Context) ([]models.GameExport, error) {
	return m.Records, nil
}

func (m *MockExportService) WriteExport(ctx context.Context, w io.Writer) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	_, err := io.WriteString(w, "[]\n")
	return err
}

func (m *MockExportService) GetCount(ctx context.Context, resource string) (int, error) {
	return m.Counts[resource], nil
}
