package service

import (
	"context"
	"strings"

	"patientsummary/internal/model"
	appErr "patientsummary/internal/pkg/errors"
	"patientsummary/internal/repo"
)

type FileService struct {
	files          *repo.FileRepo
	maxUploadBytes int64
}

func NewFileService(files *repo.FileRepo, maxUploadBytes int64) *FileService {
	return &FileService{files: files, maxUploadBytes: maxUploadBytes}
}

// CreateUpload validates the declared payload and creates a pending record.
// Validation failures reject the whole request before any record exists.
func (s *FileService) CreateUpload(ctx context.Context, patientID int64, filename, contentType string, size int64) (*model.FileRecord, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, appErr.ErrInvalid
	}
	fileType, ok := model.ParseFileType(contentType)
	if !ok {
		return nil, appErr.ErrBadFileType
	}
	if size <= 0 {
		return nil, appErr.ErrInvalid
	}
	if s.maxUploadBytes > 0 && size > s.maxUploadBytes {
		return nil, appErr.ErrFileTooLarge
	}
	rec := &model.FileRecord{
		PatientID: patientID,
		Filename:  filename,
		FileType:  fileType,
		FileSize:  size,
	}
	if err := s.files.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ValidateUpload runs the same checks as CreateUpload without touching the
// store, so a multi-file request can be rejected as a whole before any
// record is written.
func (s *FileService) ValidateUpload(filename, contentType string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return appErr.ErrInvalid
	}
	if _, ok := model.ParseFileType(contentType); !ok {
		return appErr.ErrBadFileType
	}
	if size <= 0 {
		return appErr.ErrInvalid
	}
	if s.maxUploadBytes > 0 && size > s.maxUploadBytes {
		return appErr.ErrFileTooLarge
	}
	return nil
}

func (s *FileService) ListByPatient(ctx context.Context, patientID int64) ([]*model.FileRecord, error) {
	return s.files.ListByPatient(ctx, patientID)
}
