package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"patientsummary/internal/model"
	"patientsummary/internal/pkg/dbutil"
	appErr "patientsummary/internal/pkg/errors"
)

type FileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

var fileFields = []string{
	"id", "patient_id", "filename", "file_type", "file_size",
	"s3_bucket", "s3_key", "s3_url", "upload_status", "extraction_status",
	"created_at", "updated_at",
}

// Create inserts a pending/pending record before any bytes move.
func (r *FileRepo) Create(ctx context.Context, rec *model.FileRecord) error {
	data := map[string]interface{}{
		"patient_id":        rec.PatientID,
		"filename":          rec.Filename,
		"file_type":         string(rec.FileType),
		"file_size":         rec.FileSize,
		"upload_status":     string(model.UploadPending),
		"extraction_status": string(model.ExtractionPending),
	}
	sqlStr, args, err := builder.BuildInsert("files", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	sqlStr += " RETURNING id, created_at, updated_at"
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return err
	}
	rec.UploadStatus = model.UploadPending
	rec.ExtractionStatus = model.ExtractionPending
	return nil
}

// UpdateUploadStatus performs a guarded single-row move on the upload axis.
// The previous status is part of the WHERE clause so a lost race or an
// illegal move updates nothing.
func (r *FileRepo) UpdateUploadStatus(ctx context.Context, fileID int64, from, to model.UploadStatus) error {
	if err := model.ValidateUploadTransition(from, to); err != nil {
		return err
	}
	where := map[string]interface{}{
		"id":            fileID,
		"upload_status": string(from),
	}
	update := map[string]interface{}{
		"upload_status": string(to),
		"updated_at":    time.Now().UTC(),
	}
	return r.guardedUpdate(ctx, where, update)
}

// SetObjectInfo records the storage location and completes the upload axis.
func (r *FileRepo) SetObjectInfo(ctx context.Context, fileID int64, bucket, key, url string) error {
	where := map[string]interface{}{
		"id":            fileID,
		"upload_status": string(model.UploadUploading),
	}
	update := map[string]interface{}{
		"s3_bucket":     bucket,
		"s3_key":        key,
		"s3_url":        url,
		"upload_status": string(model.UploadCompleted),
		"updated_at":    time.Now().UTC(),
	}
	return r.guardedUpdate(ctx, where, update)
}

// UpdateExtractionStatus moves the extraction axis. Leaving pending is only
// possible once the upload completed; the ordering invariant is enforced
// here in SQL rather than trusted to callers.
func (r *FileRepo) UpdateExtractionStatus(ctx context.Context, fileID int64, from, to model.ExtractionStatus) error {
	if err := model.ValidateExtractionTransition(from, to); err != nil {
		return err
	}
	where := map[string]interface{}{
		"id":                fileID,
		"extraction_status": string(from),
	}
	if from == model.ExtractionPending {
		where["upload_status"] = string(model.UploadCompleted)
	}
	update := map[string]interface{}{
		"extraction_status": string(to),
		"updated_at":        time.Now().UTC(),
	}
	return r.guardedUpdate(ctx, where, update)
}

func (r *FileRepo) guardedUpdate(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("files", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrBadTransition
	}
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, fileID int64) (*model.FileRecord, error) {
	records, err := r.query(ctx, map[string]interface{}{"id": fileID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErr.ErrNotFound
	}
	return records[0], nil
}

func (r *FileRepo) GetByIDs(ctx context.Context, fileIDs []int64) ([]*model.FileRecord, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	ids := make([]interface{}, 0, len(fileIDs))
	for _, id := range fileIDs {
		ids = append(ids, id)
	}
	return r.query(ctx, map[string]interface{}{"id in": ids})
}

func (r *FileRepo) ListByPatient(ctx context.Context, patientID int64) ([]*model.FileRecord, error) {
	return r.query(ctx, map[string]interface{}{
		"patient_id": patientID,
		"_orderby":   "created_at desc, id desc",
	})
}

func (r *FileRepo) query(ctx context.Context, where map[string]interface{}) ([]*model.FileRecord, error) {
	sqlStr, args, err := builder.BuildSelect("files", where, fileFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var records []*model.FileRecord
	for rows.Next() {
		var rec model.FileRecord
		var bucket, key, url sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.PatientID, &rec.Filename, &rec.FileType, &rec.FileSize,
			&bucket, &key, &url, &rec.UploadStatus, &rec.ExtractionStatus,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rec.S3Bucket = bucket.String
		rec.S3Key = key.String
		rec.S3URL = url.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}
