package model

import "time"

type SummaryStatus string

const (
	SummaryProcessing SummaryStatus = "processing"
	SummaryCompleted  SummaryStatus = "completed"
	SummaryFailed     SummaryStatus = "failed"
)

func (s SummaryStatus) Terminal() bool {
	return s == SummaryCompleted || s == SummaryFailed
}

type SummaryRecord struct {
	ID         int64         `json:"id"`
	PatientID  int64         `json:"patient_id"`
	Specialist Specialist    `json:"specialist_type"`
	S3Bucket   string        `json:"s3_bucket,omitempty"`
	S3Key      string        `json:"s3_key,omitempty"`
	S3URL      string        `json:"s3_url,omitempty"`
	Status     SummaryStatus `json:"status"`
	FileIDs    []int64       `json:"file_ids"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
