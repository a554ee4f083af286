package model

import (
	"fmt"
	"time"
)

// AttendanceRecord is a salesman's daily check-in. At most one record exists
// per (salesman_id, date); the unique index backs up the check-before-write
// guard in the service layer.
type AttendanceRecord struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SalesmanID uint      `json:"salesman_id" gorm:"uniqueIndex:idx_attendance_salesman_date;not null"`
	Email      string    `json:"email" gorm:"size:100"`
	Date       string    `json:"date" gorm:"uniqueIndex:idx_attendance_salesman_date;size:10;not null"` // YYYY-MM-DD, business-day key
	CheckInAt  time.Time `json:"check_in_at" gorm:"index;not null"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Accuracy   float64   `json:"accuracy"` // reported GPS accuracy in meters
	Device     string    `json:"device" gorm:"size:500"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// MapURL returns a map link for the record's coordinates.
func (r *AttendanceRecord) MapURL() string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", r.Lat, r.Lon)
}

// CheckInRequest carries the client's one-shot geolocation reading. The
// browser side requests a high-accuracy fix with a 15s timeout and no cached
// positions; geolocation failures (permission denied, unavailable, timeout)
// are handled client-side and never reach this API.
type CheckInRequest struct {
	Lat      *float64 `json:"lat" binding:"required"`
	Lon      *float64 `json:"lon" binding:"required"`
	Accuracy float64  `json:"accuracy"`
}

// CheckInStatus answers "have I checked in today" for the salesman dashboard
type CheckInStatus struct {
	CheckedIn bool              `json:"checked_in"`
	Record    *AttendanceRecord `json:"record,omitempty"`
}

// AttendanceFeedItem is one row of the admin live feed
type AttendanceFeedItem struct {
	AttendanceRecord
	SalesmanEmail string `json:"salesman_email"` // "Unknown" when the record has no email
	MapLink       string `json:"map_link"`
}

// CheckInMessage is published to NATS on every successful check-in and
// broadcast to WebSocket clients.
type CheckInMessage struct {
	RecordID   uint    `json:"record_id"`
	SalesmanID uint    `json:"salesman_id"`
	Email      string  `json:"email"`
	Date       string  `json:"date"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timestamp  int64   `json:"timestamp"`
}
