package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
)

type trialRequest struct {
	Enabled          bool             `json:"enabled"`
	OrderLimit       *int             `json:"order_limit"`
	Price            *decimal.Decimal `json:"price"`
	ValidityMode     *string          `json:"validity_mode"`
	NewCustomersOnly bool             `json:"new_customers_only"`
}

type createMealPlanRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	BasePrice    decimal.Decimal `json:"base_price"`
	BillingCycle string          `json:"billing_cycle"`
	Trial        *trialRequest   `json:"trial"`
	Metadata     map[string]any  `json:"metadata"`
}

type updateMealPlanRequest struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	BasePrice    *decimal.Decimal `json:"base_price,omitempty"`
	BillingCycle *string          `json:"billing_cycle,omitempty"`
	Trial        *trialRequest    `json:"trial,omitempty"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

func (r *trialRequest) toDomain() *mealplandomain.TrialRequest {
	if r == nil {
		return nil
	}
	return &mealplandomain.TrialRequest{
		Enabled:          r.Enabled,
		OrderLimit:       r.OrderLimit,
		Price:            r.Price,
		ValidityMode:     trimStringPtr(r.ValidityMode),
		NewCustomersOnly: r.NewCustomersOnly,
	}
}

func (s *Server) CreateMealPlan(c *gin.Context) {
	var req createMealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mealPlanSvc.Create(c.Request.Context(), mealplandomain.CreateRequest{
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		BasePrice:    req.BasePrice,
		BillingCycle: strings.TrimSpace(req.BillingCycle),
		Trial:        req.Trial.toDomain(),
		Metadata:     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMealPlans(c *gin.Context) {
	resp, err := s.mealPlanSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMealPlan(c *gin.Context) {
	resp, err := s.mealPlanSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMealPlan(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateMealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mealPlanSvc.Update(c.Request.Context(), id, mealplandomain.UpdateRequest{
		Name:         trimStringPtr(req.Name),
		Description:  trimStringPtr(req.Description),
		BasePrice:    req.BasePrice,
		BillingCycle: trimStringPtr(req.BillingCycle),
		Trial:        req.Trial.toDomain(),
		Metadata:     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateMealPlan(c *gin.Context) {
	resp, err := s.mealPlanSvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
