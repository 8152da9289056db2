package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
)

func (s *Server) ListScheduleSlots(c *gin.Context) {
	resp, err := s.scheduleSvc.ListSlots(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertScheduleSlot(c *gin.Context) {
	var req scheduledomain.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.scheduleSvc.UpsertSlot(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteScheduleSlot(c *gin.Context) {
	day, err := parseDayOfWeek(c.Param("day"))
	if err != nil {
		AbortWithError(c, scheduledomain.ErrInvalidDayOfWeek)
		return
	}

	err = s.scheduleSvc.DeleteSlot(c.Request.Context(), strings.TrimSpace(c.Param("id")), day, c.Param("meal_type"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
