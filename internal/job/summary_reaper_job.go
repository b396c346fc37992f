package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"patientsummary/internal/repo"
)

// SummaryReaperJob fails summary records stuck in processing past the
// pipeline's wait ceiling. Covers records orphaned by a crash mid-pipeline,
// which would otherwise show processing forever.
type SummaryReaperJob struct {
	summaries *repo.SummaryRepo
	maxAge    time.Duration
}

func NewSummaryReaperJob(summaries *repo.SummaryRepo, maxAge time.Duration) *SummaryReaperJob {
	return &SummaryReaperJob{summaries: summaries, maxAge: maxAge}
}

func (j *SummaryReaperJob) Name() string {
	return "summary_reaper"
}

func (j *SummaryReaperJob) Run(ctx context.Context) error {
	if j.summaries == nil {
		return nil
	}
	cutoff := time.Now().Add(-j.maxAge)
	reaped, err := j.summaries.FailStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if reaped > 0 {
		logutil.GetLogger(ctx).Info("stale summaries failed", zap.Int64("count", reaped))
	}
	return nil
}
