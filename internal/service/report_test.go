package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldforce/api/internal/model"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"150.50", 150.50},
		{"100", 100},
		{"-50", -50},
		{" 42.5 ", 42.5},
		{"", 0},
		{"abc", 0},
		{"12,5", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CoerceAmount(tt.in), "CoerceAmount(%q)", tt.in)
	}
}

func TestDashboardStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db, nil, time.UTC)
	ctx := context.Background()

	now := time.Date(2024, time.March, 18, 14, 0, 0, 0, time.UTC)
	yesterday := now.Add(-26 * time.Hour)

	// Two check-ins today, one yesterday.
	for i, at := range []time.Time{now.Add(-5 * time.Hour), now.Add(-2 * time.Hour), yesterday} {
		require.NoError(t, db.Create(&model.AttendanceRecord{
			SalesmanID: uint(i + 1),
			Date:       DateKey(at),
			CheckInAt:  at,
		}).Error)
	}

	// Three orders today (one with a junk total), one out of range.
	for _, o := range []model.Order{
		{Total: "150.50", OrderDate: now.Add(-3 * time.Hour)},
		{Total: "100", OrderDate: now.Add(-1 * time.Hour)},
		{Total: "abc", OrderDate: now.Add(-30 * time.Minute)},
		{Total: "999", OrderDate: yesterday},
	} {
		require.NoError(t, db.Create(&o).Error)
	}

	// Credit snapshot is not day-scoped.
	for _, b := range []string{"100", "-50", "200"} {
		require.NoError(t, db.Create(&model.Outlet{Name: "outlet-" + b, Balance: b}).Error)
	}

	stats := svc.statsAt(ctx, now)

	assert.Equal(t, "2024-03-18", stats.Date)
	assert.Equal(t, int64(2), stats.AttendanceCount)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.InDelta(t, 250.50, stats.TotalSales, 0.001)
	assert.InDelta(t, 250.0, stats.TotalCredit, 0.001)
	assert.Empty(t, stats.Errors)
}

func TestDashboardStatsEmptyDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db, nil, time.UTC)

	stats := svc.statsAt(context.Background(), time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, int64(0), stats.AttendanceCount)
	assert.Equal(t, int64(0), stats.TotalOrders)
	assert.Zero(t, stats.TotalSales)
	assert.Zero(t, stats.TotalCredit)
	assert.Empty(t, stats.Errors)
}

func TestDashboardStatsIsolatesQueryFailures(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db, nil, time.UTC)
	ctx := context.Background()

	now := time.Date(2024, time.March, 18, 14, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.AttendanceRecord{SalesmanID: 1, Date: DateKey(now), CheckInAt: now}).Error)
	require.NoError(t, db.Create(&model.Outlet{Name: "outlet", Balance: "75"}).Error)

	// A broken orders relation must not take the other figures down with it.
	require.NoError(t, db.Migrator().DropTable(&model.Order{}))

	stats := svc.statsAt(ctx, now)

	assert.Equal(t, int64(1), stats.AttendanceCount)
	assert.InDelta(t, 75.0, stats.TotalCredit, 0.001)
	assert.Zero(t, stats.TotalOrders)
	assert.Zero(t, stats.TotalSales)
	require.Contains(t, stats.Errors, "orders")
	assert.NotContains(t, stats.Errors, "attendance")
	assert.NotContains(t, stats.Errors, "credit")
}
