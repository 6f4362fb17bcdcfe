package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/akfire/dispatch-relay/pkg/call"
)

// CallRepository handles call archive database operations
type CallRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a new call repository
func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

// SaveCall appends an archive row for an accepted call posting
func (r *CallRepository) SaveCall(c call.Call) error {
	return r.db.Create(RecordFromCall(c)).Error
}

// Create adds an archive row directly
func (r *CallRepository) Create(rec *CallRecord) error {
	return r.db.Create(rec).Error
}

// GetRecent retrieves the most recent N archived postings
func (r *CallRepository) GetRecent(limit int) ([]CallRecord, error) {
	var records []CallRecord
	err := r.db.Order("received_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// GetByCallNumber retrieves every archived posting for a call number,
// oldest first, so the full update sequence reads in order
func (r *CallRepository) GetByCallNumber(callNumber string) ([]CallRecord, error) {
	var records []CallRecord
	err := r.db.Where("call_number = ?", callNumber).
		Order("received_at ASC").
		Find(&records).Error
	return records, err
}

// GetByArea retrieves recent archived postings for an area
func (r *CallRepository) GetByArea(area string, limit int) ([]CallRecord, error) {
	var records []CallRecord
	err := r.db.Where("area = ?", area).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// DeleteOlderThan deletes archive rows older than the specified time
func (r *CallRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("received_at < ?", before).Delete(&CallRecord{})
	return result.RowsAffected, result.Error
}
