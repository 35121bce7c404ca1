package models

import (
	"context"
	"errors"
	"time"

	"github.com/LingByte/LingIVR/pkg/ivr"
	"gorm.io/gorm"
)

const TableCallRecords = "call_records"

// ErrCallNotFound is returned when no record matches a call id
var ErrCallNotFound = errors.New("call record not found")

// CallRecord is the lifecycle of one call leg. Conversation content is never stored.
type CallRecord struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
	CallID     string     `json:"callId" gorm:"size:64;uniqueIndex;not null"` // provider call sid
	Direction  string     `json:"direction" gorm:"size:20;index"`
	Status     string     `json:"status" gorm:"size:20;index"`
	From       string     `json:"from,omitempty" gorm:"column:from_number;size:32"`
	To         string     `json:"to,omitempty" gorm:"column:to_number;size:32"`
	StartTime  time.Time  `json:"startTime"`
	AnswerTime *time.Time `json:"answerTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Duration   int        `json:"duration" gorm:"default:0"` // seconds
}

// TableName get tables
func (CallRecord) TableName() string {
	return TableCallRecords
}

// IsTerminalStatus reports whether the call can no longer change state
func IsTerminalStatus(status string) bool {
	switch status {
	case ivr.CallStatusCompleted, ivr.CallStatusBusy, ivr.CallStatusFailed,
		ivr.CallStatusNoAnswer, ivr.CallStatusCanceled:
		return true
	}
	return false
}

// CreateCallRecord inserts a new call record
func CreateCallRecord(db *gorm.DB, record *CallRecord) error {
	if record.StartTime.IsZero() {
		record.StartTime = time.Now()
	}
	return db.Create(record).Error
}

// GetCallRecordByCallID finds a record by provider call id
func GetCallRecordByCallID(db *gorm.DB, callID string) (*CallRecord, error) {
	var record CallRecord
	err := db.Where("call_id = ?", callID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetRecentCallRecords lists the newest records first
func GetRecentCallRecords(db *gorm.DB, limit int) ([]CallRecord, error) {
	var records []CallRecord
	query := db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// UpsertCallStatus applies a status callback, creating the record for calls
// that were not placed through this service (inbound calls).
func UpsertCallStatus(db *gorm.DB, ev ivr.CallEvent) (*CallRecord, error) {
	var record CallRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("call_id = ?", ev.CallID).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = CallRecord{
				CallID:    ev.CallID,
				Direction: ev.Direction,
				From:      ev.From,
				To:        ev.To,
				StartTime: time.Now(),
			}
		} else if err != nil {
			return err
		}

		applyEvent(&record, ev, time.Now())
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func applyEvent(record *CallRecord, ev ivr.CallEvent, now time.Time) {
	if record.Direction == "" {
		record.Direction = ev.Direction
	}
	if record.From == "" {
		record.From = ev.From
	}
	if record.To == "" {
		record.To = ev.To
	}
	// late callbacks must not reopen a finished call
	if IsTerminalStatus(record.Status) {
		return
	}
	if ev.Status != "" {
		record.Status = ev.Status
	}
	if ev.Status == ivr.CallStatusInProgress && record.AnswerTime == nil {
		record.AnswerTime = &now
	}
	if IsTerminalStatus(ev.Status) {
		record.EndTime = &now
		if ev.Duration > 0 {
			record.Duration = ev.Duration
		}
	}
}

// CallStore persists call records for the call flow
type CallStore struct {
	db *gorm.DB
}

func NewCallStore(db *gorm.DB) *CallStore {
	return &CallStore{db: db}
}

// RecordCall stores a call placed by this service
func (s *CallStore) RecordCall(ctx context.Context, ev ivr.CallEvent) error {
	return CreateCallRecord(s.db.WithContext(ctx), &CallRecord{
		CallID:    ev.CallID,
		Direction: ev.Direction,
		Status:    ev.Status,
		From:      ev.From,
		To:        ev.To,
	})
}

// UpdateCallStatus applies a provider status callback
func (s *CallStore) UpdateCallStatus(ctx context.Context, ev ivr.CallEvent) error {
	_, err := UpsertCallStatus(s.db.WithContext(ctx), ev)
	return err
}

// GetCall returns the record for callID or ErrCallNotFound
func (s *CallStore) GetCall(ctx context.Context, callID string) (*CallRecord, error) {
	return GetCallRecordByCallID(s.db.WithContext(ctx), callID)
}

// RecentCalls lists the newest records first
func (s *CallStore) RecentCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	return GetRecentCallRecords(s.db.WithContext(ctx), limit)
}

var _ ivr.CallRecorder = (*CallStore)(nil)
