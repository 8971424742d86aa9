package repository

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Checkpoint выполняет контрольную точку хранилища под глобальным
// барьером записи: пока снимок не завершен, ни одна запись не
// исполняется
func (r *Repository) Checkpoint() error {
	checkpointLock.Lock()
	defer checkpointLock.Unlock()

	timer := prometheus.NewTimer(CheckpointDuration)
	defer timer.ObserveDuration()

	if _, err := r.db.Exec("CHECKPOINT"); err != nil {
		return repositoryError("unable to perform repository checkpoint", err)
	}

	return nil
}

// RunCheckpointLoop периодически выполняет контрольные точки до отмены
// контекста. Ошибки логируются и не прерывают цикл
func (r *Repository) RunCheckpointLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("checkpoint loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("checkpoint loop stopped")
			return
		case <-ticker.C:
			started := time.Now()
			if err := r.Checkpoint(); err != nil {
				r.logger.Error("checkpoint failed", zap.Error(err))
				continue
			}
			r.logger.Debug("checkpoint complete", zap.Duration("took", time.Since(started)))
		}
	}
}
