package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screener/internal/models"
)

type StorageService interface {
	EnsureUploadDir() error
	SaveRunFile(runID uuid.UUID, file *multipart.FileHeader) (string, error)
	RunDir(runID uuid.UUID) string
	LoadRunDocuments(runID uuid.UUID) ([]models.InputDocument, error)
	DeleteRun(runID uuid.UUID) error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) RunDir(runID uuid.UUID) string {
	return filepath.Join(s.uploadPath, runID.String())
}

// SaveRunFile stores an uploaded resume under the run directory, keeping its original
// base name so the per-resume index identity is preserved.
func (s *storageService) SaveRunFile(runID uuid.UUID, file *multipart.FileHeader) (string, error) {
	name := filepath.Base(filepath.Clean("/" + file.Filename))
	ext := strings.ToLower(filepath.Ext(name))
	if !isSupportedExtension(ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, file.Filename)
	}

	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	filePath := uniquePath(filepath.Join(dir, name))

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filePath, nil
}

func (s *storageService) LoadRunDocuments(runID uuid.UUID) ([]models.InputDocument, error) {
	return LoadDocumentsFromDir(s.RunDir(runID))
}

func (s *storageService) DeleteRun(runID uuid.UUID) error {
	if err := os.RemoveAll(s.RunDir(runID)); err != nil {
		return fmt.Errorf("failed to delete run directory: %w", err)
	}
	return nil
}

// LoadDocumentsFromDir reads every regular file in dir, sorted by name. Subdirectories
// are ignored; unsupported files are returned too and skipped by the screener.
func LoadDocumentsFromDir(dir string) ([]models.InputDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	docs := make([]models.InputDocument, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		docs = append(docs, models.InputDocument{Name: entry.Name(), Content: content})
	}

	return docs, nil
}

func isSupportedExtension(ext string) bool {
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
