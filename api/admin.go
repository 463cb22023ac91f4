package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seongmin-dev/lockerdesk/internal/service/lockers"
)

type AdminHandler struct {
	service lockers.Engine
}

type assignRequest struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

func NewAdminHandler(service lockers.Engine) *AdminHandler {
	return &AdminHandler{service: service}
}

// AdminAuth gates the admin group on a shared token header. Comparison
// is constant-time.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/pending", h.pending)
	router.POST("/approve/:applicationId", h.approve)
	router.POST("/reject/:applicationId", h.reject)
	router.POST("/clear/:lockerNumber", h.clear)
	router.POST("/reset", h.reset)
	router.POST("/assign/:lockerNumber", h.assign)
}

func (h *AdminHandler) pending(c *gin.Context) {
	list, err := h.service.GetPendingList(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) approve(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("applicationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}
	if err := h.service.Approve(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AdminHandler) reject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("applicationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}
	if err := h.service.Reject(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AdminHandler) clear(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("lockerNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid locker number"})
		return
	}
	if err := h.service.ClearApprovedLocker(c.Request.Context(), number); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AdminHandler) reset(c *gin.Context) {
	if err := h.service.ResetAll(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AdminHandler) assign(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("lockerNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid locker number"})
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.service.AdminAssignApproved(c.Request.Context(), lockers.ApplyInput{
		StudentID:    req.StudentID,
		Name:         req.Name,
		Phone:        req.Phone,
		LockerNumber: number,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lookupCodeResponse{LookupCode: code})
}
