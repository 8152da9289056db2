package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	"github.com/smallbiznis/tiffin/pkg/db/pagination"
)

type placeOrderRequest struct {
	MealPlanID    string         `json:"meal_plan_id"`
	ScheduledDate string         `json:"scheduled_date"`
	MealType      string         `json:"meal_type"`
	IsTrial       bool           `json:"is_trial"`
	Metadata      map[string]any `json:"metadata"`
}

func (r placeOrderRequest) toDomain() orderdomain.PlaceRequest {
	return orderdomain.PlaceRequest{
		MealPlanID:    strings.TrimSpace(r.MealPlanID),
		ScheduledDate: strings.TrimSpace(r.ScheduledDate),
		MealType:      strings.TrimSpace(r.MealType),
		IsTrial:       r.IsTrial,
		Metadata:      r.Metadata,
	}
}

// QuoteOrder answers 200 for both outcomes; the verdict says whether the order would be accepted.
func (s *Server) QuoteOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	verdict, err := s.orderSvc.Quote(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"verdict": verdict}
	if !verdict.Accepted {
		resp["message"] = verdict.Reason.Message()
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Place(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.ListForCustomer(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Orders, "page_info": resp.PageInfo})
}

func (s *Server) CancelOrder(c *gin.Context) {
	resp, err := s.orderSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDashboard(c *gin.Context) {
	loc, err := s.cfg.Location()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.Dashboard(c.Request.Context(), dateOrToday(c.Query("date"), s.clock.Now(), loc))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
