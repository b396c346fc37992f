// Package pipeline drives files through upload, extraction and indexing, and
// summary requests through generation, rendering and storage upload. Two
// system-wide bounded pools backpressure the external storage and parsing
// services.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"patientsummary/internal/extract"
	"patientsummary/internal/filestore"
	"patientsummary/internal/index"
	"patientsummary/internal/model"
	"patientsummary/internal/pdfgen"
	"patientsummary/internal/service"
)

// FileStore is the slice of the file repo the pipeline needs.
type FileStore interface {
	UpdateUploadStatus(ctx context.Context, fileID int64, from, to model.UploadStatus) error
	SetObjectInfo(ctx context.Context, fileID int64, bucket, key, url string) error
	UpdateExtractionStatus(ctx context.Context, fileID int64, from, to model.ExtractionStatus) error
	GetByIDs(ctx context.Context, fileIDs []int64) ([]*model.FileRecord, error)
}

// SummaryStore is the slice of the summary repo the pipeline needs.
type SummaryStore interface {
	UpdateStatus(ctx context.Context, summaryID int64, status model.SummaryStatus) error
	SetObjectInfo(ctx context.Context, summaryID int64, bucket, key, url string) error
}

// Summarizer produces the sectioned summary once the files settle.
type Summarizer interface {
	Generate(ctx context.Context, patientID int64, patientName string, specialist model.Specialist, customQuery string) (*service.SummaryResult, error)
}

type Options struct {
	UploadWorkers     int
	ExtractionWorkers int
	WaitCeiling       time.Duration
	PollInterval      time.Duration
}

func (o *Options) fill() {
	if o.UploadWorkers <= 0 {
		o.UploadWorkers = 5
	}
	if o.ExtractionWorkers <= 0 {
		o.ExtractionWorkers = 3
	}
	if o.WaitCeiling <= 0 {
		o.WaitCeiling = 5 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
}

type Orchestrator struct {
	files      FileStore
	summaries  SummaryStore
	store      filestore.Store
	idx        *index.Index
	summarizer Summarizer
	uploadSem  *semaphore.Weighted
	extractSem *semaphore.Weighted
	opts       Options
}

func NewOrchestrator(files FileStore, summaries SummaryStore, store filestore.Store, idx *index.Index, summarizer Summarizer, opts Options) *Orchestrator {
	opts.fill()
	return &Orchestrator{
		files:      files,
		summaries:  summaries,
		store:      store,
		idx:        idx,
		summarizer: summarizer,
		uploadSem:  semaphore.NewWeighted(int64(opts.UploadWorkers)),
		extractSem: semaphore.NewWeighted(int64(opts.ExtractionWorkers)),
		opts:       opts,
	}
}

// SubmitFile runs the file's pipeline in the background. The record must be
// freshly created, pending on both axes. Once a stage fails, the file stops
// there; no retry. The pipeline works on its own copy, so the caller may
// keep serializing the record while it runs.
func (o *Orchestrator) SubmitFile(ctx context.Context, rec *model.FileRecord, data []byte) {
	bg := context.WithoutCancel(ctx)
	clone := *rec
	go o.runFile(bg, &clone, data)
}

func (o *Orchestrator) runFile(ctx context.Context, rec *model.FileRecord, data []byte) {
	logger := logutil.GetLogger(ctx).With(
		zap.Int64("file_id", rec.ID),
		zap.Int64("patient_id", rec.PatientID),
		zap.String("filename", rec.Filename),
	)
	if err := o.uploadFile(ctx, rec, data); err != nil {
		logger.Error("upload stage failed", zap.Error(err))
		o.failUpload(ctx, rec.ID, logger)
		return
	}
	logger.Info("upload completed", zap.String("key", rec.S3Key))
	if err := o.extractFile(ctx, rec); err != nil {
		logger.Error("extraction stage failed", zap.Error(err))
		o.failExtraction(ctx, rec.ID, logger)
		return
	}
	logger.Info("extraction completed")
}

// failUpload captures the failure from whichever state the record reached:
// uploading normally, or still pending when entering uploading itself failed.
func (o *Orchestrator) failUpload(ctx context.Context, fileID int64, logger *zap.Logger) {
	if err := o.files.UpdateUploadStatus(ctx, fileID, model.UploadUploading, model.UploadFailed); err == nil {
		return
	}
	if err := o.files.UpdateUploadStatus(ctx, fileID, model.UploadPending, model.UploadFailed); err != nil {
		logger.Error("mark upload failed", zap.Error(err))
	}
}

func (o *Orchestrator) failExtraction(ctx context.Context, fileID int64, logger *zap.Logger) {
	if err := o.files.UpdateExtractionStatus(ctx, fileID, model.ExtractionProcessing, model.ExtractionFailed); err == nil {
		return
	}
	if err := o.files.UpdateExtractionStatus(ctx, fileID, model.ExtractionPending, model.ExtractionFailed); err != nil {
		logger.Error("mark extraction failed", zap.Error(err))
	}
}

func (o *Orchestrator) uploadFile(ctx context.Context, rec *model.FileRecord, data []byte) error {
	if err := o.uploadSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire upload slot: %w", err)
	}
	defer o.uploadSem.Release(1)

	if err := o.files.UpdateUploadStatus(ctx, rec.ID, model.UploadPending, model.UploadUploading); err != nil {
		return fmt.Errorf("enter uploading: %w", err)
	}
	key := uploadKey(rec)
	if err := o.store.Save(ctx, key, bytes.NewReader(data), int64(len(data)), rec.FileType.ContentType()); err != nil {
		return fmt.Errorf("save object: %w", err)
	}
	url := o.store.URL(key)
	if err := o.files.SetObjectInfo(ctx, rec.ID, o.store.Bucket(), key, url); err != nil {
		return fmt.Errorf("record object info: %w", err)
	}
	rec.S3Bucket, rec.S3Key, rec.S3URL = o.store.Bucket(), key, url
	return nil
}

func (o *Orchestrator) extractFile(ctx context.Context, rec *model.FileRecord) error {
	if err := o.extractSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire extraction slot: %w", err)
	}
	defer o.extractSem.Release(1)

	if err := o.files.UpdateExtractionStatus(ctx, rec.ID, model.ExtractionPending, model.ExtractionProcessing); err != nil {
		return fmt.Errorf("enter processing: %w", err)
	}
	rc, err := o.store.Open(ctx, rec.S3Key)
	if err != nil {
		return fmt.Errorf("open object: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}
	chunks, err := extract.Extract(ctx, rec, data)
	if err != nil {
		return fmt.Errorf("parse content: %w", err)
	}
	o.idx.Add(rec.PatientID, chunks)
	if err := o.files.UpdateExtractionStatus(ctx, rec.ID, model.ExtractionProcessing, model.ExtractionCompleted); err != nil {
		return fmt.Errorf("leave processing: %w", err)
	}
	return nil
}

// StartSummary waits in the background for every file to settle, then
// generates, renders and stores the summary PDF. The wait has a hard ceiling;
// hitting it fails the summary rather than shipping partial citations.
func (o *Orchestrator) StartSummary(ctx context.Context, rec *model.SummaryRecord, patientName string) {
	bg := context.WithoutCancel(ctx)
	go o.runSummary(bg, rec, patientName)
}

func (o *Orchestrator) runSummary(ctx context.Context, rec *model.SummaryRecord, patientName string) {
	logger := logutil.GetLogger(ctx).With(
		zap.Int64("summary_id", rec.ID),
		zap.Int64("patient_id", rec.PatientID),
		zap.String("specialist", string(rec.Specialist)),
	)
	if err := o.waitFilesTerminal(ctx, rec.FileIDs); err != nil {
		logger.Error("summary wait failed", zap.Error(err))
		o.failSummary(ctx, rec.ID)
		return
	}
	if err := o.completeSummary(ctx, rec, patientName); err != nil {
		logger.Error("summary stage failed", zap.Error(err))
		o.failSummary(ctx, rec.ID)
		return
	}
	logger.Info("summary completed")
}

func (o *Orchestrator) waitFilesTerminal(ctx context.Context, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	deadline := time.Now().Add(o.opts.WaitCeiling)
	for {
		recs, err := o.files.GetByIDs(ctx, fileIDs)
		if err != nil {
			return fmt.Errorf("poll files: %w", err)
		}
		pending := 0
		for _, rec := range recs {
			if !rec.Terminal() {
				pending++
			}
		}
		if pending == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d of %d files not terminal within %s", pending, len(fileIDs), o.opts.WaitCeiling)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.opts.PollInterval):
		}
	}
}

func (o *Orchestrator) completeSummary(ctx context.Context, rec *model.SummaryRecord, patientName string) error {
	result, err := o.summarizer.Generate(ctx, rec.PatientID, patientName, rec.Specialist, "")
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	pdfBytes, err := pdfgen.Render(summaryDocument(result, patientName))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	key := summaryKey(rec)
	if err := o.store.Save(ctx, key, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		return fmt.Errorf("save pdf: %w", err)
	}
	if err := o.summaries.SetObjectInfo(ctx, rec.ID, o.store.Bucket(), key, o.store.URL(key)); err != nil {
		return fmt.Errorf("record pdf info: %w", err)
	}
	return nil
}

func (o *Orchestrator) failSummary(ctx context.Context, summaryID int64) {
	if err := o.summaries.UpdateStatus(ctx, summaryID, model.SummaryFailed); err != nil {
		logutil.GetLogger(ctx).Error("mark summary failed",
			zap.Int64("summary_id", summaryID), zap.Error(err))
	}
}

func summaryDocument(result *service.SummaryResult, patientName string) pdfgen.Document {
	doc := pdfgen.Document{
		Title:       fmt.Sprintf("Patient Health Summary - %s", titleCase(string(result.Specialist))),
		PatientName: patientName,
		Specialist:  string(result.Specialist),
		GeneratedAt: time.Now().UTC().Format("2006-01-02"),
		Note:        result.Note,
	}
	for _, section := range result.Sections {
		doc.Sections = append(doc.Sections, pdfgen.Section{
			Heading: section.Heading,
			Bullets: sectionBullets(section.Body),
		})
	}
	return doc
}

func sectionBullets(body string) []string {
	var bullets []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
	}
	return bullets
}

func uploadKey(rec *model.FileRecord) string {
	return fmt.Sprintf("patients/%d/%d_%s%s", rec.PatientID, rec.ID, shortID(), rec.FileType.Extension())
}

func summaryKey(rec *model.SummaryRecord) string {
	return fmt.Sprintf("summaries/%d/%s_%d_%s.pdf", rec.PatientID, rec.Specialist, rec.ID, shortID())
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
