package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quickai/api/internal/ai"
	"quickai/api/internal/cache"
	"quickai/api/internal/config"
	"quickai/api/internal/middleware"
	"quickai/api/internal/repository"
	"quickai/api/internal/service"
	"quickai/api/internal/storage"
)

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	creations *service.CreationService
	db        *pgxpool.Pool
	cache     *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, objects *storage.ObjectStore, provider *ai.Client, cfg *config.AppConfig) HandlerSet {
	repo := repository.NewCreationRepository(db)
	feed := cache.NewFeedCache(redisClient, cfg.Plans.FeedCacheTTL, log)
	usage := cache.NewUsageLimiter(redisClient, cfg.Plans.FreeMonthlyQuota)
	creations := service.NewCreationService(repo, provider, objects, usage, feed, cfg, log)

	return HandlerSet{
		log:       log,
		cfg:       cfg,
		creations: creations,
		db:        db,
		cache:     redisClient,
	}
}

// Register wires the routes. Paths are fixed; the web client depends on them.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	user := router.Group("/user")
	user.Use(middleware.Auth(h.cfg))
	{
		user.GET("/get-user-creations", h.GetUserCreations)
		user.GET("/get-published-creations", h.GetPublishedCreations)
		user.POST("/toggle-like-creation", h.ToggleLikeCreation)
		user.DELETE("/delete-creation", h.DeleteCreation)
	}

	gen := router.Group("/ai")
	gen.Use(middleware.Auth(h.cfg))
	{
		gen.POST("/generate-article", h.GenerateArticle)
		gen.POST("/generate-blog-title", h.GenerateBlogTitle)
		gen.POST("/generate-image", h.GenerateImage)
		gen.POST("/remove-image-background", h.RemoveImageBackground)
		gen.POST("/remove-image-object", h.RemoveImageObject)
		gen.POST("/resume-review", h.ResumeReview)
	}
}

func (h HandlerSet) actor(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.UserID, Premium: claims.Premium()}, true
}

// respondError translates service failures into the uniform envelope. Raw
// store or provider errors never reach the client.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "something went wrong"

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, service.ErrPremiumRequired):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, service.ErrQuotaExceeded):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, repository.ErrCreationExists):
		status = http.StatusConflict
		message = "creation already exists"
	case errors.Is(err, ai.ErrProvider):
		status = http.StatusBadGateway
		message = "generation service is unavailable, try again later"
	}

	if status >= 500 || status == http.StatusBadGateway {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}
