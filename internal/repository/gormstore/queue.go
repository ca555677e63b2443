package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicflow/clinicflow/internal/domain/queue"
)

type QueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

func (r *QueueRepository) Create(ctx context.Context, e *queue.Entry) error {
	err := dbFrom(ctx, r.db).Create(e).Error
	if err != nil && isUniqueViolation(err) {
		return queue.ErrVisitAlreadyQueued
	}
	return err
}

func (r *QueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*queue.Entry, error) {
	var e queue.Entry
	err := dbFrom(ctx, r.db).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, queue.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *QueueRepository) GetByVisitID(ctx context.Context, visitID uuid.UUID) (*queue.Entry, error) {
	var e queue.Entry
	err := dbFrom(ctx, r.db).First(&e, "visit_id = ?", visitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, queue.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *QueueRepository) ListByStatus(ctx context.Context, statuses ...queue.Status) ([]*queue.Entry, error) {
	var entries []*queue.Entry
	err := dbFrom(ctx, r.db).
		Where("status IN ?", statuses).
		Order("check_in_time ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *QueueRepository) CountByStatus(ctx context.Context, status queue.Status) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).
		Model(&queue.Entry{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *QueueRepository) Update(ctx context.Context, e *queue.Entry) error {
	return dbFrom(ctx, r.db).Save(e).Error
}

func (r *QueueRepository) UpdatePositions(ctx context.Context, positions map[uuid.UUID]int) error {
	if len(positions) == 0 {
		return nil
	}

	// One CASE statement updates every position in a single round trip.
	ids := make([]uuid.UUID, 0, len(positions))
	var cases strings.Builder
	args := make([]any, 0, len(positions)*2)
	for id, pos := range positions {
		ids = append(ids, id)
		cases.WriteString("WHEN ? THEN ? ")
		args = append(args, id, pos)
	}

	query := fmt.Sprintf(
		"UPDATE clinical.queue_entries SET position = CASE id %s END, updated_at = NOW() WHERE id IN ?",
		cases.String(),
	)
	args = append(args, ids)

	return dbFrom(ctx, r.db).Exec(query, args...).Error
}

func (r *QueueRepository) Claim(ctx context.Context, id, doctorID uuid.UUID, room string, at time.Time) (*queue.Entry, error) {
	// Conditional update: the claim only lands if the entry is still waiting.
	res := dbFrom(ctx, r.db).
		Model(&queue.Entry{}).
		Where("id = ? AND status = ?", id, queue.StatusWaiting).
		Updates(map[string]any{
			"status":                  queue.StatusInProgress,
			"doctor_id":               doctorID,
			"room":                    room,
			"called_at":               at,
			"consultation_started_at": at,
			"position":                0,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, queue.ErrEntryClaimed
	}

	return r.GetByID(ctx, id)
}
