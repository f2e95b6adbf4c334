package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"darvas/internal/store/model"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// CreateRun records a new simulation run in running state.
func (s *Store) CreateRun(ctx context.Context, run model.RunModel) error {
	run.Status = RunStatusRunning
	return s.db.WithContext(ctx).Create(&run).Error
}

// CompleteRun finalizes a run with its report (or failure message).
func (s *Store) CompleteRun(ctx context.Context, id, status, message string, report any) error {
	updates := map[string]any{
		"status":       status,
		"message":      message,
		"completed_at": time.Now().Unix(),
	}
	if report != nil {
		raw, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("encoding run report: %w", err)
		}
		updates["report_json"] = raw
	}
	res := s.db.WithContext(ctx).Model(&model.RunModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetRun fetches one run by id; found=false when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (model.RunModel, bool, error) {
	var run model.RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RunModel{}, false, nil
	}
	if err != nil {
		return model.RunModel{}, false, err
	}
	return run, true, nil
}

// ListRuns returns runs newest first; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunModel, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []model.RunModel
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
