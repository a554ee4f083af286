package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldforce/api/internal/model"
)

// SubjectCheckIn is the NATS subject check-in events are published to.
const SubjectCheckIn = "field.checkin"

var (
	// ErrAlreadyCheckedIn means a record for (salesman, today) already exists.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	// ErrInvalidCoordinates means the reported position is out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// AttendanceService handles the daily check-in workflow
type AttendanceService struct {
	db    *gorm.DB
	redis *redis.Client
	nats  *nats.Conn
	loc   *time.Location
}

// NewAttendanceService creates a new attendance service. redisClient and
// natsConn may be nil; caching and event publishing are then skipped.
func NewAttendanceService(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn, loc *time.Location) *AttendanceService {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceService{
		db:    db,
		redis: redisClient,
		nats:  natsConn,
		loc:   loc,
	}
}

// DateKey formats a wall-clock instant as the business-day key. The key is
// derived from the local date components, not from the stored instant, so
// "today" stays stable regardless of how the backend stores timestamps.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// TodayKey returns the business-day key for the current instant.
func (s *AttendanceService) TodayKey() string {
	return DateKey(time.Now().In(s.loc))
}

// CheckIn records today's attendance for the salesman. It is idempotent in
// intent: when a record for today already exists it is returned together with
// ErrAlreadyCheckedIn, and the unique index on (salesman_id, date) closes the
// concurrent double-submit race the read-then-write check cannot.
func (s *AttendanceService) CheckIn(ctx context.Context, user *model.User, req *model.CheckInRequest, device string) (*model.AttendanceRecord, error) {
	if req.Lat == nil || req.Lon == nil ||
		*req.Lat < -90 || *req.Lat > 90 || *req.Lon < -180 || *req.Lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	now := time.Now().In(s.loc)
	date := DateKey(now)

	if existing, err := s.recordFor(ctx, user.ID, date); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, ErrAlreadyCheckedIn
	}

	record := &model.AttendanceRecord{
		SalesmanID: user.ID,
		Email:      user.Email,
		Date:       date,
		CheckInAt:  now,
		Lat:        *req.Lat,
		Lon:        *req.Lon,
		Accuracy:   req.Accuracy,
		Device:     device,
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent submit; surface the winner.
			if existing, ferr := s.recordFor(ctx, user.ID, date); ferr == nil && existing != nil {
				return existing, ErrAlreadyCheckedIn
			}
			return nil, ErrAlreadyCheckedIn
		}
		return nil, fmt.Errorf("save check-in: %w", err)
	}

	s.cacheRecord(ctx, record, now)
	s.publishCheckIn(record)

	return record, nil
}

// Today returns the salesman's record for the current business day, or nil
// when they have not checked in yet.
func (s *AttendanceService) Today(ctx context.Context, salesmanID uint) (*model.AttendanceRecord, error) {
	now := time.Now().In(s.loc)
	date := DateKey(now)

	if cached := s.cachedRecord(ctx, salesmanID, date); cached != nil {
		return cached, nil
	}

	record, err := s.recordFor(ctx, salesmanID, date)
	if err != nil || record == nil {
		return nil, err
	}

	s.cacheRecord(ctx, record, now)
	return record, nil
}

// ListForDate returns all check-ins for a business day, newest first, shaped
// for the admin live feed.
func (s *AttendanceService) ListForDate(ctx context.Context, date string) ([]model.AttendanceFeedItem, error) {
	var records []model.AttendanceRecord
	if err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("check_in_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	items := make([]model.AttendanceFeedItem, 0, len(records))
	for _, r := range records {
		email := r.Email
		if email == "" {
			email = "Unknown"
		}
		items = append(items, model.AttendanceFeedItem{
			AttendanceRecord: r,
			SalesmanEmail:    email,
			MapLink:          r.MapURL(),
		})
	}
	return items, nil
}

func (s *AttendanceService) recordFor(ctx context.Context, salesmanID uint, date string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("salesman_id = ? AND date = ?", salesmanID, date).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func checkInCacheKey(salesmanID uint, date string) string {
	return fmt.Sprintf("field:checkin:%d:%s", salesmanID, date)
}

// cacheRecord keeps the day's record in Redis until the business day rolls
// over, so the dashboard's status probe does not hit Postgres.
func (s *AttendanceService) cacheRecord(ctx context.Context, record *model.AttendanceRecord, now time.Time) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		return
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.loc)
	if err := s.redis.Set(ctx, checkInCacheKey(record.SalesmanID, record.Date), data, time.Until(midnight)).Err(); err != nil {
		log.Printf("[Attendance] Failed to cache check-in for salesman %d: %v", record.SalesmanID, err)
	}
}

func (s *AttendanceService) cachedRecord(ctx context.Context, salesmanID uint, date string) *model.AttendanceRecord {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, checkInCacheKey(salesmanID, date)).Bytes()
	if err != nil {
		return nil
	}

	var record model.AttendanceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return &record
}

// publishCheckIn notifies the live feed. Publish failures are logged, never
// surfaced: the record is already durable.
func (s *AttendanceService) publishCheckIn(record *model.AttendanceRecord) {
	if s.nats == nil {
		return
	}

	msg := model.CheckInMessage{
		RecordID:   record.ID,
		SalesmanID: record.SalesmanID,
		Email:      record.Email,
		Date:       record.Date,
		Lat:        record.Lat,
		Lon:        record.Lon,
		Timestamp:  record.CheckInAt.Unix(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Attendance] Failed to marshal check-in event: %v", err)
		return
	}

	if err := s.nats.Publish(SubjectCheckIn, data); err != nil {
		log.Printf("[Attendance] Failed to publish check-in event: %v", err)
	}
}
