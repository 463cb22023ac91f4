package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seongmin-dev/lockerdesk/internal/domain"
	"github.com/seongmin-dev/lockerdesk/internal/service/lockers"
)

// LookupThrottle counts failed lookup verifications per student id so
// repeated code guessing slows down at the boundary.
type LookupThrottle interface {
	RegisterLookupFailure(ctx context.Context, studentID string, window time.Duration) (int64, error)
	LookupFailures(ctx context.Context, studentID string) (int64, error)
}

type PublicHandler struct {
	service   lockers.Engine
	throttle  LookupThrottle
	failLimit int64
	window    time.Duration
}

type applyRequest struct {
	StudentID    string `json:"studentId"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	LockerNumber int    `json:"lockerNumber"`
}

type lookupCodeResponse struct {
	LookupCode string `json:"lookupCode"`
}

type memoRequest struct {
	StudentID string `json:"studentId"`
	Code      string `json:"code"`
	Memo      string `json:"memo"`
}

type emptyRequest struct {
	StudentID string `json:"studentId"`
	Code      string `json:"code"`
}

func NewPublicHandler(service lockers.Engine, throttle LookupThrottle, failLimit int64, window time.Duration) *PublicHandler {
	return &PublicHandler{service: service, throttle: throttle, failLimit: failLimit, window: window}
}

func (h *PublicHandler) Register(router *gin.RouterGroup) {
	router.GET("/lockers", h.lockerGrid)
	router.POST("/apply", h.apply)
	router.GET("/my-status", h.myStatus)
	router.GET("/my-locker", h.myLocker)
	router.POST("/my-locker/memo", h.saveMemo)
	router.POST("/my-locker/empty", h.emptyLocker)
}

func (h *PublicHandler) lockerGrid(c *gin.Context) {
	grid, err := h.service.GetLockerGrid(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

func (h *PublicHandler) apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.service.Apply(c.Request.Context(), lockers.ApplyInput{
		StudentID:    req.StudentID,
		Name:         req.Name,
		Phone:        req.Phone,
		LockerNumber: req.LockerNumber,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lookupCodeResponse{LookupCode: code})
}

func (h *PublicHandler) myStatus(c *gin.Context) {
	studentID := c.Query("studentId")
	code := c.Query("code")
	if h.throttled(c, studentID) {
		return
	}

	status, err := h.service.GetMyStatus(c.Request.Context(), studentID, code)
	if err != nil {
		h.recordLookupFailure(c, studentID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *PublicHandler) myLocker(c *gin.Context) {
	studentID := c.Query("studentId")
	code := c.Query("code")
	if h.throttled(c, studentID) {
		return
	}

	my, err := h.service.GetMyLocker(c.Request.Context(), studentID, code)
	if err != nil {
		h.recordLookupFailure(c, studentID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, my)
}

func (h *PublicHandler) saveMemo(c *gin.Context) {
	var req memoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.throttled(c, req.StudentID) {
		return
	}

	if err := h.service.SaveMyMemo(c.Request.Context(), req.StudentID, req.Code, req.Memo); err != nil {
		h.recordLookupFailure(c, req.StudentID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *PublicHandler) emptyLocker(c *gin.Context) {
	var req emptyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.throttled(c, req.StudentID) {
		return
	}

	if err := h.service.EmptyMyLocker(c.Request.Context(), req.StudentID, req.Code); err != nil {
		h.recordLookupFailure(c, req.StudentID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// throttled rejects the request with 429 once the failure budget for the
// student id is exhausted. Throttle errors are ignored: redis being down
// must not take self-service down with it.
func (h *PublicHandler) throttled(c *gin.Context, studentID string) bool {
	if h.throttle == nil || studentID == "" {
		return false
	}
	n, err := h.throttle.LookupFailures(c.Request.Context(), studentID)
	if err != nil {
		return false
	}
	if n >= h.failLimit {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many failed lookups; try again later"})
		return true
	}
	return false
}

func (h *PublicHandler) recordLookupFailure(c *gin.Context, studentID string, err error) {
	if h.throttle == nil || !errors.Is(err, domain.ErrUnauthenticated) {
		return
	}
	_, _ = h.throttle.RegisterLookupFailure(c.Request.Context(), studentID, h.window)
}
