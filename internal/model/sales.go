package model

import (
	"time"

	"gorm.io/gorm"
)

// Order is written by the ordering system; this service only reads it.
// Totals arrive as text and are not guaranteed numeric, so aggregation
// coerces them (non-numeric contributes zero).
type Order struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	OutletName string         `json:"outlet_name" gorm:"size:100"`
	SalesmanID uint           `json:"salesman_id" gorm:"index"`
	Total      string         `json:"total" gorm:"type:text"`
	OrderDate  time.Time      `json:"order_date" gorm:"index;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// Outlet is a point of sale. Balance is the outstanding credit owed to the
// business (positive) or held by the outlet (negative); same loose typing as
// Order.Total.
type Outlet struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"uniqueIndex;size:100"`
	Address   string         `json:"address" gorm:"size:200"`
	Balance   string         `json:"balance" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Route is an ordered outlet assignment for a single salesman
type Route struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Name       string         `json:"name" gorm:"size:100"`
	SalesmanID uint           `json:"salesman_id" gorm:"index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// RouteOutlet is one stop on a route; Sequence defines the visit order
type RouteOutlet struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	RouteID    uint   `json:"route_id" gorm:"index;not null"`
	OutletName string `json:"outlet_name" gorm:"size:100"`
	Sequence   int    `json:"sequence" gorm:"not null"`
}

func (RouteOutlet) TableName() string {
	return "route_outlets"
}

// RouteResponse is a route with its ordered stops
type RouteResponse struct {
	Route   Route         `json:"route"`
	Outlets []RouteOutlet `json:"outlets"`
}

// DashboardStats holds the admin daily figures. The three day-scoped queries
// run concurrently and fail independently: a figure whose query failed keeps
// its zero value and gets an entry in Errors, the others still render.
type DashboardStats struct {
	Date            string            `json:"date"`
	AttendanceCount int64             `json:"attendance_count"`
	TotalOrders     int64             `json:"total_orders"`
	TotalSales      float64           `json:"total_sales"`
	TotalCredit     float64           `json:"total_credit"` // all-time snapshot, not day-scoped
	Errors          map[string]string `json:"errors,omitempty"`
}
