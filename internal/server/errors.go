package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	eligibilitydomain "github.com/smallbiznis/tiffin/internal/eligibility/domain"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"github.com/smallbiznis/tiffin/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`

	Code      string     `json:"code,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Limit     *int       `json:"limit,omitempty"`
	MaxOrders *int       `json:"max_orders,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status == http.StatusTooManyRequests {
			c.Header("Retry-After", "1")
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var rejection *orderdomain.RejectionError
	if errors.As(err, &rejection) && rejection.Verdict != nil {
		v := rejection.Verdict
		return http.StatusBadRequest, errorPayload{
			Type:      "order_rejected",
			Code:      string(v.Reason),
			Message:   v.Reason.Message(),
			Deadline:  v.Deadline,
			Limit:     v.TrialLimit,
			MaxOrders: v.MaxOrders,
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, mealplandomain.ErrInvalidKitchen),
		errors.Is(err, orderdomain.ErrInvalidKitchen),
		errors.Is(err, orderdomain.ErrInvalidCustomer):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, mealplandomain.ErrForbidden),
		errors.Is(err, orderdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, orderdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many order requests",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, orderdomain.ErrAlreadyCancelled),
		errors.Is(err, orderdomain.ErrTrialBusy),
		db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, eligibilitydomain.ErrEngineFault):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "eligibility could not be determined, try again",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns (type, code) for the request log line.
func classifyErrorForLog(err error) (string, string) {
	var rejection *orderdomain.RejectionError
	if errors.As(err, &rejection) && rejection.Verdict != nil {
		return "order_rejected", string(rejection.Verdict.Reason)
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isMealPlanValidationError(err),
		isScheduleValidationError(err),
		isOrderValidationError(err):
		return true
	default:
		return false
	}
}

func isMealPlanValidationError(err error) bool {
	switch {
	case errors.Is(err, mealplandomain.ErrInvalidName),
		errors.Is(err, mealplandomain.ErrInvalidBasePrice),
		errors.Is(err, mealplandomain.ErrInvalidBillingCycle),
		errors.Is(err, mealplandomain.ErrInvalidTrialLimit),
		errors.Is(err, mealplandomain.ErrInvalidTrialPrice),
		errors.Is(err, mealplandomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isScheduleValidationError(err error) bool {
	switch {
	case errors.Is(err, scheduledomain.ErrInvalidMealType),
		errors.Is(err, scheduledomain.ErrInvalidDayOfWeek),
		errors.Is(err, scheduledomain.ErrInvalidTimeOfDay),
		errors.Is(err, scheduledomain.ErrInvalidOrderDeadline),
		errors.Is(err, scheduledomain.ErrInvalidServiceWindow),
		errors.Is(err, scheduledomain.ErrInvalidDeliveryWindow),
		errors.Is(err, scheduledomain.ErrInvalidPriceOverride),
		errors.Is(err, scheduledomain.ErrInvalidMaxOrders),
		errors.Is(err, scheduledomain.ErrInvalidMealPlan):
		return true
	default:
		return false
	}
}

func isOrderValidationError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrInvalidMealPlan),
		errors.Is(err, orderdomain.ErrInvalidDate),
		errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrInvalidPageRequest):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, mealplandomain.ErrNotFound),
		errors.Is(err, scheduledomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrMealPlanNotFound):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, orderdomain.ErrAlreadyCancelled):
		return "order is already cancelled"
	case errors.Is(err, orderdomain.ErrTrialBusy):
		return "a trial order for this meal plan is already being placed"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "" {
		return "request"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
