package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldforce/api/internal/service"
)

// RouteHandler serves the salesman's assigned route
type RouteHandler struct {
	routeService *service.RouteService
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(routeService *service.RouteService) *RouteHandler {
	return &RouteHandler{routeService: routeService}
}

// GetMyRoute returns the authenticated salesman's route and ordered stops
// @Summary My route
// @Description The salesman's assigned route with outlets in visit order
// @Tags Routes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.RouteResponse
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /routes/my [get]
func (h *RouteHandler) GetMyRoute(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	route, err := h.routeService.ForSalesman(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if route == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no route assigned"})
		return
	}

	c.JSON(http.StatusOK, route)
}
