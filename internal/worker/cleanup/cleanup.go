// Package cleanup は論理削除したレジュメの物理削除ジョブを提供する。
// 論理削除から保持期間（デフォルト30日）を超過したレジュメを定期的に削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/resumekit/internal/metrics"
)

// DefaultRetention は論理削除したレジュメの保持期間のデフォルト値。
const DefaultRetention = 30 * 24 * time.Hour

// Purger は論理削除済みレジュメの物理削除を行うインターフェース。
// repository.ResumeStore が満たす。
type Purger interface {
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は保持期間を超過したレジュメの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	store     Purger
	logger    *slog.Logger
	collector metrics.MetricsCollector
	now       func() time.Time

	Retention time.Duration // 論理削除からの保持期間
}

// NewCleanupJob は新しいCleanupJobを生成する。collectorはnilでもよい。
func NewCleanupJob(store Purger, logger *slog.Logger, collector metrics.MetricsCollector) *CleanupJob {
	return &CleanupJob{
		store:     store,
		logger:    logger,
		collector: collector,
		now:       time.Now,
		Retention: DefaultRetention,
	}
}

// Run は論理削除から保持期間を超過したレジュメを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.Retention).UTC()

	deleted, err := j.store.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("レジュメクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("retention", j.Retention),
		)
		return fmt.Errorf("failed to purge inactive resumes: %w", err)
	}

	if j.collector != nil {
		j.collector.RecordResumesPurged(deleted)
	}

	j.logger.Info("レジュメクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、以降はintervalごとに実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("retention", j.Retention),
	)

	// 失敗はRun内でログ済み。次のティックで再試行する
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
