package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/repository"
)

// UserHandler exposes user administration: listing registered users and
// approving pending registrations.
type UserHandler struct {
	users repository.UserRepository
}

func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type approveRequest struct {
	Role string `json:"role"`
}

// Approve grants a pending user access, optionally assigning a role.
func (h *UserHandler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req approveRequest
	_ = c.ShouldBindJSON(&req)

	user, err := h.users.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Role != "" {
		role := model.UserRole(req.Role)
		if !model.ValidRole(role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role: " + req.Role})
			return
		}
		user.Role = role
	}
	user.Approved = true
	if err := h.users.Save(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	klog.V(6).Infof("пользователь подтверждён: id=%d, role=%s", user.ID, user.Role)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Deactivate revokes a user's access without deleting the record.
func (h *UserHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	user.Active = false
	if err := h.users.Save(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
