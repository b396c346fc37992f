package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/lib/pq"

	"patientsummary/internal/model"
	"patientsummary/internal/pkg/dbutil"
	appErr "patientsummary/internal/pkg/errors"
)

type SummaryRepo struct {
	db *sql.DB
}

func NewSummaryRepo(db *sql.DB) *SummaryRepo {
	return &SummaryRepo{db: db}
}

var summaryFields = []string{
	"id", "patient_id", "specialist_type", "s3_bucket", "s3_key", "s3_url",
	"status", "file_ids", "created_at", "updated_at",
}

func (r *SummaryRepo) Create(ctx context.Context, rec *model.SummaryRecord) error {
	data := map[string]interface{}{
		"patient_id":      rec.PatientID,
		"specialist_type": string(rec.Specialist),
		"status":          string(model.SummaryProcessing),
		"file_ids":        pq.Array(rec.FileIDs),
	}
	sqlStr, args, err := builder.BuildInsert("summary_pdfs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	sqlStr += " RETURNING id, created_at, updated_at"
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return err
	}
	rec.Status = model.SummaryProcessing
	return nil
}

func (r *SummaryRepo) UpdateStatus(ctx context.Context, summaryID int64, status model.SummaryStatus) error {
	where := map[string]interface{}{"id": summaryID}
	update := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}
	return r.update(ctx, where, update)
}

// SetObjectInfo records the rendered PDF location and completes the record.
func (r *SummaryRepo) SetObjectInfo(ctx context.Context, summaryID int64, bucket, key, url string) error {
	where := map[string]interface{}{
		"id":     summaryID,
		"status": string(model.SummaryProcessing),
	}
	update := map[string]interface{}{
		"s3_bucket":  bucket,
		"s3_key":     key,
		"s3_url":     url,
		"status":     string(model.SummaryCompleted),
		"updated_at": time.Now().UTC(),
	}
	return r.update(ctx, where, update)
}

func (r *SummaryRepo) update(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("summary_pdfs", where, update)
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
		return appErr.ErrNotFound
	}
	return nil
}

func (r *SummaryRepo) GetByID(ctx context.Context, summaryID int64) (*model.SummaryRecord, error) {
	records, err := r.query(ctx, map[string]interface{}{"id": summaryID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErr.ErrNotFound
	}
	return records[0], nil
}

// LatestByPatientAndSpecialist returns the most recent summary record for
// the combination, which is what the status poll endpoint reports on.
func (r *SummaryRepo) LatestByPatientAndSpecialist(ctx context.Context, patientID int64, specialist model.Specialist) (*model.SummaryRecord, error) {
	records, err := r.query(ctx, map[string]interface{}{
		"patient_id":      patientID,
		"specialist_type": string(specialist),
		"_orderby":        "created_at desc, id desc",
		"_limit":          []uint{0, 1},
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErr.ErrNotFound
	}
	return records[0], nil
}

// FailStale marks processing records older than the cutoff as failed.
// Covers records orphaned by a crash between submit and completion.
func (r *SummaryRepo) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	where := map[string]interface{}{
		"status":       string(model.SummaryProcessing),
		"updated_at <": cutoff,
	}
	update := map[string]interface{}{
		"status":     string(model.SummaryFailed),
		"updated_at": time.Now().UTC(),
	}
	sqlStr, args, err := builder.BuildUpdate("summary_pdfs", where, update)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SummaryRepo) query(ctx context.Context, where map[string]interface{}) ([]*model.SummaryRecord, error) {
	sqlStr, args, err := builder.BuildSelect("summary_pdfs", where, summaryFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var records []*model.SummaryRecord
	for rows.Next() {
		var rec model.SummaryRecord
		var bucket, key, url sql.NullString
		var fileIDs pq.Int64Array
		if err := rows.Scan(
			&rec.ID, &rec.PatientID, &rec.Specialist, &bucket, &key, &url,
			&rec.Status, &fileIDs, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rec.S3Bucket = bucket.String
		rec.S3Key = key.String
		rec.S3URL = url.String
		rec.FileIDs = []int64(fileIDs)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
