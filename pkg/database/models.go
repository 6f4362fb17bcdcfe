package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/akfire/dispatch-relay/pkg/call"
)

// CallRecord is one archived call posting. Every accepted posting appends a
// row, so updates to a call number appear as successive records. The archive
// is write-only from the relay's point of view; live state never reads it.
type CallRecord struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	CallNumber       string    `gorm:"index;not null" json:"call_number"`
	Area             string    `gorm:"index;not null" json:"area"`
	CallType         string    `gorm:"size:100" json:"call_type"`
	DispatchCode     string    `gorm:"size:10" json:"dispatch_code"`
	CallDateTime     string    `gorm:"size:30" json:"call_date_time"`
	DispatchDateTime string    `gorm:"size:30" json:"dispatch_date_time"`
	Location         string    `gorm:"size:200" json:"location"`
	LocationType     string    `gorm:"size:50" json:"location_type"`
	CrossStreets     string    `gorm:"size:200" json:"cross_streets"`
	Venue            string    `gorm:"size:100" json:"venue"`
	CommonName       string    `gorm:"size:100" json:"common_name"`
	CallInfo         string    `json:"call_info"`
	CCText           string    `json:"cc_text"`
	Breathing        string    `gorm:"size:20" json:"breathing"`
	Conscious        string    `gorm:"size:20" json:"conscious"`
	Response         string    `gorm:"size:50" json:"response"`
	ReceivedAt       time.Time `gorm:"index;not null" json:"received_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for CallRecord
func (CallRecord) TableName() string {
	return "call_records"
}

// BeforeCreate hook to ensure timestamps are set
func (c *CallRecord) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.ReceivedAt.IsZero() {
		c.ReceivedAt = time.Now()
	}
	return nil
}

// RecordFromCall maps a parsed call onto an archive row
func RecordFromCall(c call.Call) *CallRecord {
	return &CallRecord{
		CallNumber:       c.CallNumber,
		Area:             c.Area,
		CallType:         c.CallType,
		DispatchCode:     c.DispatchCode,
		CallDateTime:     c.CallDateTime,
		DispatchDateTime: c.DispatchDateTime,
		Location:         c.Location,
		LocationType:     c.LocationType,
		CrossStreets:     c.CrossStreets,
		Venue:            c.Venue,
		CommonName:       c.CommonName,
		CallInfo:         c.CallInfo,
		CCText:           c.CCText,
		Breathing:        c.Breathing,
		Conscious:        c.Conscious,
		Response:         c.Response,
	}
}
