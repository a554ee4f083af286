package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldforce/api/internal/model"
)

// statsCacheTTL keeps the admin dashboard from re-aggregating on every poll.
const statsCacheTTL = 30 * time.Second

// ReportService computes the admin dashboard figures
type ReportService struct {
	db    *gorm.DB
	redis *redis.Client
	loc   *time.Location
}

// NewReportService creates a new report service. redisClient may be nil.
func NewReportService(db *gorm.DB, redisClient *redis.Client, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{db: db, redis: redisClient, loc: loc}
}

// CoerceAmount parses a loosely-typed monetary value. Missing or non-numeric
// input contributes zero, it never fails.
func CoerceAmount(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// DashboardStats aggregates today's figures. The three queries run
// concurrently and each failure is captured on its own branch: a failed query
// zeroes only its own figures and reports itself in Errors, the rest still
// come back.
func (s *ReportService) DashboardStats(ctx context.Context) *model.DashboardStats {
	return s.statsAt(ctx, time.Now().In(s.loc))
}

func (s *ReportService) statsAt(ctx context.Context, now time.Time) *model.DashboardStats {
	date := DateKey(now)

	if cached := s.cachedStats(ctx, date); cached != nil {
		return cached
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	stats := &model.DashboardStats{Date: date}

	var (
		wg              sync.WaitGroup
		attendanceErr   error
		ordersErr       error
		creditErr       error
		attendanceCount int64
		orders          []model.Order
		outlets         []model.Outlet
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		attendanceErr = s.db.WithContext(ctx).
			Model(&model.AttendanceRecord{}).
			Where("check_in_at >= ? AND check_in_at < ?", start, end).
			Count(&attendanceCount).Error
	}()

	go func() {
		defer wg.Done()
		ordersErr = s.db.WithContext(ctx).
			Where("order_date >= ? AND order_date < ?", start, end).
			Find(&orders).Error
	}()

	go func() {
		defer wg.Done()
		// Outstanding credit is a running snapshot across all outlets, not a
		// daily figure.
		creditErr = s.db.WithContext(ctx).Find(&outlets).Error
	}()

	wg.Wait()

	errs := make(map[string]string)

	if attendanceErr != nil {
		log.Printf("[Report] Attendance count failed: %v", attendanceErr)
		errs["attendance"] = attendanceErr.Error()
	} else {
		stats.AttendanceCount = attendanceCount
	}

	if ordersErr != nil {
		log.Printf("[Report] Orders query failed: %v", ordersErr)
		errs["orders"] = ordersErr.Error()
	} else {
		stats.TotalOrders = int64(len(orders))
		for _, o := range orders {
			stats.TotalSales += CoerceAmount(o.Total)
		}
	}

	if creditErr != nil {
		log.Printf("[Report] Outlet balance query failed: %v", creditErr)
		errs["credit"] = creditErr.Error()
	} else {
		for _, o := range outlets {
			stats.TotalCredit += CoerceAmount(o.Balance)
		}
	}

	if len(errs) > 0 {
		stats.Errors = errs
	} else {
		s.cacheStats(ctx, stats)
	}

	return stats
}

func statsCacheKey(date string) string {
	return "field:stats:" + date
}

func (s *ReportService) cachedStats(ctx context.Context, date string) *model.DashboardStats {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, statsCacheKey(date)).Bytes()
	if err != nil {
		return nil
	}

	var stats model.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *ReportService) cacheStats(ctx context.Context, stats *model.DashboardStats) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, statsCacheKey(stats.Date), data, statsCacheTTL).Err(); err != nil {
		log.Printf("[Report] Failed to cache dashboard stats: %v", err)
	}
}
