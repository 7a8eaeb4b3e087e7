package db

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the sqlite database at path and migrates the schema.
func Init(path string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.AutoMigrate(&RunRecord{}, &TaskHistory{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return conn, nil
}

// InsertRun records a newly started run.
func InsertRun(conn *gorm.DB, rec *RunRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusRunning
	}
	return conn.Create(rec).Error
}

// UpdateRunProgress refreshes the live counters of a running run.
func UpdateRunProgress(conn *gorm.DB, id string, processed, total int) error {
	return conn.Model(&RunRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": processed, "total": total}).Error
}

// FinishRun marks a run terminal and stores its final counters and log text.
func FinishRun(conn *gorm.DB, id, status string, processed, total int, logText string) error {
	now := time.Now()
	return conn.Model(&RunRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    status,
			"processed": processed,
			"total":     total,
			"log":       logText,
			"ended_at":  &now,
		}).Error
}

// GetRun loads one run by ID.
func GetRun(conn *gorm.DB, id string) (*RunRecord, error) {
	var rec RunRecord
	if err := conn.First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRuns returns runs, most recent first.
func ListRuns(conn *gorm.DB, limit int) ([]RunRecord, error) {
	var rows []RunRecord
	err := conn.Order("started_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// InsertTask records one encoder invocation.
func InsertTask(conn *gorm.DB, task *TaskHistory) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	return conn.Create(task).Error
}

// ListTasks returns the per-file history of a run in execution order.
func ListTasks(conn *gorm.DB, runID string, limit int) ([]TaskHistory, error) {
	var rows []TaskHistory
	err := conn.Where("run_id = ?", runID).Order("id asc").Limit(limit).Find(&rows).Error
	return rows, err
}

// GetStats aggregates outcomes across all recorded runs.
func GetStats(conn *gorm.DB) (*Stats, error) {
	var stats Stats
	if err := conn.Model(&RunRecord{}).Count(&stats.TotalRuns).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&TaskHistory{}).Count(&stats.TotalFiles).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&TaskHistory{}).Where("status = ?", "success").Count(&stats.SuccessCount).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&TaskHistory{}).Where("status = ?", "failed").Count(&stats.FailedCount).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
