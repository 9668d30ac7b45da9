package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dealflowbot/backend/internal/repository"
	"github.com/dealflowbot/backend/internal/service"
	"github.com/dealflowbot/backend/internal/service/statemachine"
)

// ApplicationHandler exposes the read-only operational API over
// applications.
type ApplicationHandler struct {
	apps          *service.ApplicationService
	intake        *service.IntakeService
	questionnaire *service.QuestionnaireService
}

func NewApplicationHandler(
	apps *service.ApplicationService,
	intake *service.IntakeService,
	questionnaire *service.QuestionnaireService,
) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, intake: intake, questionnaire: questionnaire}
}

// List returns all applications, optionally filtered by status.
func (h *ApplicationHandler) List(c *gin.Context) {
	status := c.Query("status")
	if status != "" {
		if !statemachine.ValidStatus(statemachine.ApplicationStatus(status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + status})
			return
		}
		apps, err := h.apps.ListByStatus(statemachine.ApplicationStatus(status))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"applications": apps})
		return
	}
	apps, err := h.apps.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	app, err := h.apps.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func (h *ApplicationHandler) Documents(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	docs, err := h.intake.Documents(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *ApplicationHandler) Answers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	answers, err := h.questionnaire.Answers(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

func (h *ApplicationHandler) Tasks(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tasks, err := h.apps.Tasks(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
