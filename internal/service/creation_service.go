package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quickai/api/internal/config"
	"quickai/api/internal/ids"
	"quickai/api/internal/media/sniffer"
	"quickai/api/internal/models"
	"quickai/api/internal/repository"
	"quickai/api/internal/security"
)

var (
	ErrNotFound        = errors.New("creation not found")
	ErrForbidden       = errors.New("operation not allowed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrQuotaExceeded   = errors.New("free usage limit reached, upgrade to continue")
	ErrPremiumRequired = errors.New("this feature is only available to premium users")
)

const maxResumeSize = 5 << 20

// Actor is the authenticated caller as established by the auth middleware.
type Actor struct {
	ID      string
	Premium bool
}

type CreationStore interface {
	Create(ctx context.Context, creation models.Creation) error
	GetByID(ctx context.Context, id string) (models.Creation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Creation, error)
	ListPublished(ctx context.Context) ([]models.Creation, error)
	ToggleLike(ctx context.Context, id string, userID string) ([]string, bool, error)
	Delete(ctx context.Context, id string) error
}

type Provider interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	RemoveBackground(ctx context.Context, image []byte, mimeType string) ([]byte, error)
	RemoveObject(ctx context.Context, image []byte, mimeType string, object string) ([]byte, error)
	ReviewResume(ctx context.Context, pdf []byte) (string, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

type UsageLimiter interface {
	Consume(ctx context.Context, userID string) (bool, error)
}

type FeedCache interface {
	Get(ctx context.Context) ([]models.Creation, bool)
	Set(ctx context.Context, creations []models.Creation)
	Invalidate(ctx context.Context)
}

// CreationService owns the creation lifecycle: it calls the AI provider,
// persists successful results, and enforces who may list, like and delete.
type CreationService struct {
	store    CreationStore
	provider Provider
	objects  ObjectStore
	usage    UsageLimiter
	feed     FeedCache
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewCreationService(store CreationStore, provider Provider, objects ObjectStore, usage UsageLimiter, feed FeedCache, cfg *config.AppConfig, log zerolog.Logger) *CreationService {
	return &CreationService{
		store:    store,
		provider: provider,
		objects:  objects,
		usage:    usage,
		feed:     feed,
		cfg:      cfg,
		log:      log,
	}
}

type ToggleLikeResult struct {
	Liked     bool
	LikeCount int
}

func (s *CreationService) GenerateArticle(ctx context.Context, actor Actor, prompt string, length int) (models.Creation, error) {
	if strings.TrimSpace(prompt) == "" {
		return models.Creation{}, fmt.Errorf("%w: prompt required", ErrInvalidInput)
	}
	if err := s.consumeQuota(ctx, actor); err != nil {
		return models.Creation{}, err
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()

	content, err := s.provider.GenerateText(callCtx, prompt, length)
	if err != nil {
		return models.Creation{}, err
	}
	return s.persist(ctx, actor.ID, models.CreationTypeArticle, prompt, content, false)
}

func (s *CreationService) GenerateBlogTitles(ctx context.Context, actor Actor, prompt string) (models.Creation, error) {
	if strings.TrimSpace(prompt) == "" {
		return models.Creation{}, fmt.Errorf("%w: prompt required", ErrInvalidInput)
	}
	if err := s.consumeQuota(ctx, actor); err != nil {
		return models.Creation{}, err
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()

	content, err := s.provider.GenerateText(callCtx, prompt, 0)
	if err != nil {
		return models.Creation{}, err
	}
	return s.persist(ctx, actor.ID, models.CreationTypeBlogTitle, prompt, content, false)
}

func (s *CreationService) GenerateImage(ctx context.Context, actor Actor, prompt string, publish bool) (models.Creation, error) {
	if strings.TrimSpace(prompt) == "" {
		return models.Creation{}, fmt.Errorf("%w: prompt required", ErrInvalidInput)
	}
	if !actor.Premium {
		return models.Creation{}, ErrPremiumRequired
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()

	data, err := s.provider.GenerateImage(callCtx, prompt)
	if err != nil {
		return models.Creation{}, err
	}

	url, err := s.storeImage(ctx, data, "image/png")
	if err != nil {
		return models.Creation{}, err
	}
	return s.persist(ctx, actor.ID, models.CreationTypeImage, prompt, url, publish)
}

func (s *CreationService) RemoveBackground(ctx context.Context, actor Actor, image []byte, declaredMime string) (models.Creation, error) {
	if !actor.Premium {
		return models.Creation{}, ErrPremiumRequired
	}

	detected, err := sniffImage(image, declaredMime)
	if err != nil {
		return models.Creation{}, err
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()

	data, err := s.provider.RemoveBackground(callCtx, image, detected.MIME)
	if err != nil {
		return models.Creation{}, err
	}

	url, err := s.storeImage(ctx, data, "image/png")
	if err != nil {
		return models.Creation{}, err
	}
	return s.persist(ctx, actor.ID, models.CreationTypeBackgroundRemoved, "Remove background from image", url, false)
}

func (s *CreationService) RemoveObject(ctx context.Context, actor Actor, image []byte, declaredMime string, object string) (models.Creation, error) {
	if !actor.Premium {
		return models.Creation{}, ErrPremiumRequired
	}

	object = strings.TrimSpace(object)
	if words := strings.Fields(object); len(words) != 1 {
		return models.Creation{}, fmt.Errorf("%w: object must be a single word", ErrInvalidInput)
	}

	detected, err := sniffImage(image, declaredMime)
	if err != nil {
		return models.Creation{}, err
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()

	data, err := s.provider.RemoveObject(callCtx, image, detected.MIME, object)
	if err != nil {
		return models.Creation{}, err
	}

	url, err := s.storeImage(ctx, data, "image/png")
	if err != nil {
		return models.Creation{}, err
	}
	prompt := fmt.Sprintf("Removed %s from image", object)
	return s.persist(ctx, actor.ID, models.CreationTypeObjectRemoved, prompt, url, false)
}

func (s *CreationService) ReviewResume(ctx context.Context, actor Actor, resume []byte) (models.Creation, error) {
	if len(resume) == 0 {
		return models.Creation{}, fmt.Errorf("%w: resume file required", ErrInvalidInput)
	}
	if len(resume) > maxResumeSize {
		return models.Creation{}, fmt.Errorf("%w: resume exceeds 5MB", ErrInvalidInput)
	}

	detected, err := sniffer.DetectHead(sniffHead(resume))
	if err != nil || detected.Type != sniffer.TypePDF {
		return models.Creation{}, fmt.Errorf("%w: resume must be a PDF", ErrInvalidInput)
	}

	if err := s.consumeQuota(ctx, actor); err != nil {
		return models.Creation{}, err
	}

	callCtx, cancel := s.providerContext(ctx)
	defer cancel()

	content, err := s.provider.ReviewResume(callCtx, resume)
	if err != nil {
		return models.Creation{}, err
	}
	return s.persist(ctx, actor.ID, models.CreationTypeResumeReview, "Review the uploaded resume", content, false)
}

func (s *CreationService) ListOwn(ctx context.Context, ownerID string) ([]models.Creation, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *CreationService) ListPublished(ctx context.Context) ([]models.Creation, error) {
	if creations, ok := s.feed.Get(ctx); ok {
		return creations, nil
	}

	creations, err := s.store.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	s.feed.Set(ctx, creations)
	return creations, nil
}

func (s *CreationService) ToggleLike(ctx context.Context, userID string, creationID string) (ToggleLikeResult, error) {
	if creationID == "" {
		return ToggleLikeResult{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}

	likes, liked, err := s.store.ToggleLike(ctx, creationID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCreationNotFound) {
			return ToggleLikeResult{}, ErrNotFound
		}
		return ToggleLikeResult{}, err
	}

	s.feed.Invalidate(ctx)

	return ToggleLikeResult{
		Liked:     liked,
		LikeCount: len(likes),
	}, nil
}

func (s *CreationService) Delete(ctx context.Context, requesterID string, creationID string) error {
	if creationID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}

	creation, err := s.store.GetByID(ctx, creationID)
	if err != nil {
		if errors.Is(err, repository.ErrCreationNotFound) {
			return ErrNotFound
		}
		return err
	}
	if creation.OwnerID != requesterID {
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, creationID); err != nil {
		if errors.Is(err, repository.ErrCreationNotFound) {
			return ErrNotFound
		}
		return err
	}

	if creation.Published {
		s.feed.Invalidate(ctx)
	}
	return nil
}

// persist writes the creation after a successful provider call. Nothing is
// written when the provider fails; callers return before reaching here.
func (s *CreationService) persist(ctx context.Context, ownerID string, kind models.CreationType, prompt string, content string, published bool) (models.Creation, error) {
	now := time.Now().UTC()
	creation := models.Creation{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Type:      kind,
		Prompt:    prompt,
		Content:   content,
		Published: published,
		Likes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, creation); err != nil {
		return models.Creation{}, err
	}

	if published {
		s.feed.Invalidate(ctx)
	}

	s.log.Info().
		Str("creation_id", creation.ID).
		Str("user_id", ownerID).
		Str("type", string(kind)).
		Bool("published", published).
		Msg("creation stored")

	return creation, nil
}

func (s *CreationService) storeImage(ctx context.Context, data []byte, contentType string) (string, error) {
	key := path.Join(time.Now().UTC().Format("2006/01/02"), ids.New()+".png")
	if err := s.objects.Put(ctx, key, data, contentType); err != nil {
		return "", err
	}

	sig := security.SignResource(s.cfg.Security.SignatureSecret, key)
	return s.objects.PublicURL(key) + "?sig=" + sig, nil
}

func (s *CreationService) consumeQuota(ctx context.Context, actor Actor) error {
	if actor.Premium {
		return nil
	}
	allowed, err := s.usage.Consume(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *CreationService) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.AI.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func sniffImage(image []byte, declaredMime string) (sniffer.Result, error) {
	if len(image) == 0 {
		return sniffer.Result{}, fmt.Errorf("%w: image file required", ErrInvalidInput)
	}

	detected, err := sniffer.DetectHead(sniffHead(image))
	if err != nil || !detected.IsImage() {
		return sniffer.Result{}, fmt.Errorf("%w: unsupported image format", ErrInvalidInput)
	}
	if declaredMime != "" && declaredMime != detected.MIME {
		return sniffer.Result{}, fmt.Errorf("%w: content type mismatch: declared %s, actual %s", ErrInvalidInput, declaredMime, detected.MIME)
	}
	return detected, nil
}

func sniffHead(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
