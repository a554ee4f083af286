package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"fieldforce/api/internal/model"
)

// RouteService serves the salesman's assigned route
type RouteService struct {
	db *gorm.DB
}

// NewRouteService creates a new route service
func NewRouteService(db *gorm.DB) *RouteService {
	return &RouteService{db: db}
}

// ForSalesman returns the salesman's route with its stops ordered by
// sequence. At most one route is expected per salesman; if data drift ever
// produces more, the lowest id wins. A nil response means no route is
// assigned, which is a valid state distinct from an assigned route with no
// stops.
func (s *RouteService) ForSalesman(ctx context.Context, salesmanID uint) (*model.RouteResponse, error) {
	var route model.Route
	err := s.db.WithContext(ctx).
		Where("salesman_id = ?", salesmanID).
		Order("id ASC").
		First(&route).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	outlets := make([]model.RouteOutlet, 0)
	if err := s.db.WithContext(ctx).
		Where("route_id = ?", route.ID).
		Order("sequence ASC").
		Find(&outlets).Error; err != nil {
		return nil, err
	}

	return &model.RouteResponse{Route: route, Outlets: outlets}, nil
}
