package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"quickai/api/internal/media/sniffer"
)

const maxUploadSize = 10 << 20

type generateArticleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

type generateBlogTitleRequest struct {
	Prompt string `json:"prompt"`
}

type generateImageRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

func (h HandlerSet) GenerateArticle(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req generateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "prompt required"})
		return
	}

	creation, err := h.creations.GenerateArticle(c.Request.Context(), actor, req.Prompt, req.Length)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": creation.Content})
}

func (h HandlerSet) GenerateBlogTitle(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req generateBlogTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "prompt required"})
		return
	}

	creation, err := h.creations.GenerateBlogTitles(c.Request.Context(), actor, req.Prompt)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": creation.Content})
}

func (h HandlerSet) GenerateImage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req generateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "prompt required"})
		return
	}

	creation, err := h.creations.GenerateImage(c.Request.Context(), actor, req.Prompt, req.Publish)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": creation.Content})
}

func (h HandlerSet) RemoveImageBackground(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	data, declaredMime, ok := h.readUpload(c, "image")
	if !ok {
		return
	}

	creation, err := h.creations.RemoveBackground(c.Request.Context(), actor, data, declaredMime)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": creation.Content})
}

func (h HandlerSet) RemoveImageObject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	data, declaredMime, ok := h.readUpload(c, "image")
	if !ok {
		return
	}

	creation, err := h.creations.RemoveObject(c.Request.Context(), actor, data, declaredMime, c.PostForm("object"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": creation.Content})
}

func (h HandlerSet) ResumeReview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	data, _, ok := h.readUpload(c, "resume")
	if !ok {
		return
	}

	creation, err := h.creations.ReviewResume(c.Request.Context(), actor, data)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "content": creation.Content})
}

// readUpload pulls one multipart file, bounded by maxUploadSize, and returns
// its bytes plus the declared content type.
func (h HandlerSet) readUpload(c *gin.Context, field string) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": field + " file required"})
		return nil, "", false
	}
	defer closeUpload(file)

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "could not read " + field + " file"})
		return nil, "", false
	}
	if len(data) > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": field + " file too large"})
		return nil, "", false
	}

	return data, sniffer.MimeTypeFromHTTP(http.Header(header.Header)), true
}

func closeUpload(file multipart.File) {
	_ = file.Close()
}
