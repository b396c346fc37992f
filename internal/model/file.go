package model

import (
	"time"

	appErr "patientsummary/internal/pkg/errors"
)

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionProcessing ExtractionStatus = "processing"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

// FileType is the closed set of declared upload types.
type FileType string

const (
	FileTypeJPEG FileType = "jpeg"
	FileTypePNG  FileType = "png"
	FileTypePDF  FileType = "pdf"
)

func ParseFileType(contentType string) (FileType, bool) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return FileTypeJPEG, true
	case "image/png":
		return FileTypePNG, true
	case "application/pdf":
		return FileTypePDF, true
	}
	return "", false
}

func (t FileType) ContentType() string {
	switch t {
	case FileTypeJPEG:
		return "image/jpeg"
	case FileTypePNG:
		return "image/png"
	case FileTypePDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

func (t FileType) Extension() string {
	switch t {
	case FileTypeJPEG:
		return ".jpg"
	case FileTypePNG:
		return ".png"
	case FileTypePDF:
		return ".pdf"
	}
	return ""
}

type FileRecord struct {
	ID               int64            `json:"id"`
	PatientID        int64            `json:"patient_id"`
	Filename         string           `json:"filename"`
	FileType         FileType         `json:"file_type"`
	FileSize         int64            `json:"file_size"`
	S3Bucket         string           `json:"s3_bucket,omitempty"`
	S3Key            string           `json:"s3_key,omitempty"`
	S3URL            string           `json:"s3_url,omitempty"`
	UploadStatus     UploadStatus     `json:"upload_status"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (s UploadStatus) Terminal() bool {
	return s == UploadCompleted || s == UploadFailed
}

func (s ExtractionStatus) Terminal() bool {
	return s == ExtractionCompleted || s == ExtractionFailed
}

// Terminal reports whether both status axes reached a state from which no
// automatic transition occurs.
func (f *FileRecord) Terminal() bool {
	if f.UploadStatus == UploadFailed {
		// A failed upload never starts extraction.
		return true
	}
	return f.UploadStatus.Terminal() && f.ExtractionStatus.Terminal()
}

var uploadTransitions = map[UploadStatus][]UploadStatus{
	UploadPending:   {UploadUploading, UploadFailed},
	UploadUploading: {UploadCompleted, UploadFailed},
}

var extractionTransitions = map[ExtractionStatus][]ExtractionStatus{
	ExtractionPending:    {ExtractionProcessing, ExtractionFailed},
	ExtractionProcessing: {ExtractionCompleted, ExtractionFailed},
}

// ValidateUploadTransition rejects moves outside the upload state machine.
func ValidateUploadTransition(from, to UploadStatus) error {
	for _, next := range uploadTransitions[from] {
		if next == to {
			return nil
		}
	}
	return appErr.ErrBadTransition
}

// ValidateExtractionTransition rejects moves outside the extraction state
// machine. Extraction may only leave pending once the upload completed;
// that ordering is enforced at the store layer where both axes are visible.
func ValidateExtractionTransition(from, to ExtractionStatus) error {
	for _, next := range extractionTransitions[from] {
		if next == to {
			return nil
		}
	}
	return appErr.ErrBadTransition
}
