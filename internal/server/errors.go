package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	attendancedomain "github.com/classbill/classbill/internal/attendance/domain"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	reconciliationdomain "github.com/classbill/classbill/internal/reconciliation/domain"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
	ErrInternal        = errors.New("internal_error")
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

func mapError(err error) (int, errorPayload) {
	var obligations *subjectdomain.ActiveObligationsError
	if errors.As(err, &obligations) {
		return http.StatusConflict, errorPayload{
			Type:    "active_financial_obligations",
			Message: "subject has active financial obligations",
			Detail: gin.H{
				"active_plans":  obligations.ActivePlans,
				"pending_items": obligations.PendingItems,
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, subjectdomain.ErrInvalidOrganization),
		errors.Is(err, plandomain.ErrInvalidOrganization),
		errors.Is(err, paymentdomain.ErrInvalidOrganization),
		errors.Is(err, snapshotdomain.ErrInvalidOrganization),
		errors.Is(err, attendancedomain.ErrInvalidOrganization):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "missing organization context",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, plandomain.ErrDuplicateActivePlan),
		errors.Is(err, plandomain.ErrPlanHasPayments),
		errors.Is(err, plandomain.ErrPlanNotActive),
		errors.Is(err, paymentdomain.ErrScheduleItemSettled),
		errors.Is(err, attendancedomain.ErrOpenAttendanceExists),
		errors.Is(err, attendancedomain.ErrAlreadyCheckedOut),
		errors.Is(err, reconciliationdomain.ErrPassAlreadyRunning):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, subjectdomain.ErrSubjectNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, plandomain.ErrSubjectNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, paymentdomain.ErrScheduleItemNotFound),
		errors.Is(err, snapshotdomain.ErrSubjectNotFound),
		errors.Is(err, attendancedomain.ErrEventNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, subjectdomain.ErrInvalidSubject),
		errors.Is(err, subjectdomain.ErrInvalidName),
		errors.Is(err, subjectdomain.ErrInvalidProgramClass),
		errors.Is(err, subjectdomain.ErrInvalidBillingKind),
		errors.Is(err, plandomain.ErrInvalidSubject),
		errors.Is(err, plandomain.ErrInvalidPlan),
		errors.Is(err, plandomain.ErrInvalidPlanKind),
		errors.Is(err, plandomain.ErrInvalidPlanParameters),
		errors.Is(err, paymentdomain.ErrInvalidSubject),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidMode),
		errors.Is(err, paymentdomain.ErrInvalidCategory),
		errors.Is(err, paymentdomain.ErrInvalidPayment),
		errors.Is(err, paymentdomain.ErrInvalidScheduleItem),
		errors.Is(err, paymentdomain.ErrPartialSettlement),
		errors.Is(err, snapshotdomain.ErrInvalidSubject),
		errors.Is(err, attendancedomain.ErrInvalidSubject),
		errors.Is(err, attendancedomain.ErrInvalidEvent),
		errors.Is(err, attendancedomain.ErrInvalidAttendanceWindow),
		errors.Is(err, attendancedomain.ErrInvalidPeriod),
		errors.Is(err, attendancedomain.ErrNotUsageBilled):
		return true
	default:
		return false
	}
}
