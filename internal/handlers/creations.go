package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quickai/api/internal/models"
)

type creationIDRequest struct {
	ID string `json:"id"`
}

func (h HandlerSet) GetUserCreations(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	creations, err := h.creations.ListOwn(c.Request.Context(), actor.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"creations": creationsOrEmpty(creations),
	})
}

func (h HandlerSet) GetPublishedCreations(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	creations, err := h.creations.ListPublished(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"creations": creationsOrEmpty(creations),
	})
}

func (h HandlerSet) ToggleLikeCreation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req creationIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "creation id required"})
		return
	}

	result, err := h.creations.ToggleLike(c.Request.Context(), actor.ID, req.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "Like removed"
	if result.Liked {
		message = "Creation liked"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"likes":   result.LikeCount,
	})
}

func (h HandlerSet) DeleteCreation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req creationIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "creation id required"})
		return
	}

	if err := h.creations.Delete(c.Request.Context(), actor.ID, req.ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Creation deleted",
	})
}

func creationsOrEmpty(creations []models.Creation) []models.Creation {
	if creations == nil {
		return []models.Creation{}
	}
	return creations
}
