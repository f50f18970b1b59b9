package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickai/api/internal/ai"
	"quickai/api/internal/config"
	"quickai/api/internal/models"
	"quickai/api/internal/repository"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

type memStore struct {
	records map[string]models.Creation
	order   []string
}

func newMemStore() *memStore {
	return &memStore{records: map[string]models.Creation{}}
}

func (m *memStore) Create(_ context.Context, creation models.Creation) error {
	if _, ok := m.records[creation.ID]; ok {
		return repository.ErrCreationExists
	}
	m.records[creation.ID] = creation
	m.order = append(m.order, creation.ID)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (models.Creation, error) {
	creation, ok := m.records[id]
	if !ok {
		return models.Creation{}, repository.ErrCreationNotFound
	}
	return creation, nil
}

func (m *memStore) ListByOwner(_ context.Context, ownerID string) ([]models.Creation, error) {
	var out []models.Creation
	for i := len(m.order) - 1; i >= 0; i-- {
		if creation, ok := m.records[m.order[i]]; ok && creation.OwnerID == ownerID {
			out = append(out, creation)
		}
	}
	return out, nil
}

func (m *memStore) ListPublished(_ context.Context) ([]models.Creation, error) {
	var out []models.Creation
	for i := len(m.order) - 1; i >= 0; i-- {
		if creation, ok := m.records[m.order[i]]; ok && creation.Published {
			out = append(out, creation)
		}
	}
	return out, nil
}

func (m *memStore) ToggleLike(_ context.Context, id string, userID string) ([]string, bool, error) {
	creation, ok := m.records[id]
	if !ok {
		return nil, false, repository.ErrCreationNotFound
	}

	likes := make([]string, 0, len(creation.Likes))
	liked := true
	for _, existing := range creation.Likes {
		if existing == userID {
			liked = false
			continue
		}
		likes = append(likes, existing)
	}
	if liked {
		likes = append(likes, userID)
	}

	creation.Likes = likes
	m.records[id] = creation
	return likes, liked, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return repository.ErrCreationNotFound
	}
	delete(m.records, id)
	return nil
}

type stubProvider struct {
	text    string
	image   []byte
	err     error
	calls   int
}

func (p *stubProvider) GenerateText(context.Context, string, int) (string, error) {
	p.calls++
	return p.text, p.err
}

func (p *stubProvider) GenerateImage(context.Context, string) ([]byte, error) {
	p.calls++
	return p.image, p.err
}

func (p *stubProvider) RemoveBackground(context.Context, []byte, string) ([]byte, error) {
	p.calls++
	return p.image, p.err
}

func (p *stubProvider) RemoveObject(context.Context, []byte, string, string) ([]byte, error) {
	p.calls++
	return p.image, p.err
}

func (p *stubProvider) ReviewResume(context.Context, []byte) (string, error) {
	p.calls++
	return p.text, p.err
}

type stubObjects struct {
	puts map[string][]byte
}

func (o *stubObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	if o.puts == nil {
		o.puts = map[string][]byte{}
	}
	o.puts[key] = data
	return nil
}

func (o *stubObjects) PublicURL(key string) string {
	return "https://cdn.test/creations/" + key
}

type stubUsage struct {
	quota int
	used  map[string]int
}

func (u *stubUsage) Consume(_ context.Context, userID string) (bool, error) {
	if u.used == nil {
		u.used = map[string]int{}
	}
	if u.quota > 0 && u.used[userID] >= u.quota {
		return false, nil
	}
	u.used[userID]++
	return true, nil
}

type stubFeed struct {
	cached      []models.Creation
	valid       bool
	invalidated int
}

func (f *stubFeed) Get(context.Context) ([]models.Creation, bool) {
	if !f.valid {
		return nil, false
	}
	return f.cached, true
}

func (f *stubFeed) Set(_ context.Context, creations []models.Creation) {
	f.cached = creations
	f.valid = true
}

func (f *stubFeed) Invalidate(context.Context) {
	f.cached = nil
	f.valid = false
	f.invalidated++
}

type fixture struct {
	service  *CreationService
	store    *memStore
	provider *stubProvider
	objects  *stubObjects
	usage    *stubUsage
	feed     *stubFeed
}

func newFixture() *fixture {
	store := newMemStore()
	provider := &stubProvider{text: "generated content", image: pngHeader}
	objects := &stubObjects{}
	usage := &stubUsage{}
	feed := &stubFeed{}

	cfg := &config.AppConfig{
		AI:       config.AIConfig{RequestTimeout: time.Second},
		Security: config.SecurityConfig{SignatureSecret: "test-secret"},
	}

	return &fixture{
		service:  NewCreationService(store, provider, objects, usage, feed, cfg, zerolog.Nop()),
		store:    store,
		provider: provider,
		objects:  objects,
		usage:    usage,
		feed:     feed,
	}
}

func TestGenerateArticleStoresCreation(t *testing.T) {
	f := newFixture()
	actor := Actor{ID: "user-a"}

	creation, err := f.service.GenerateArticle(context.Background(), actor, "AI in healthcare", 800)
	require.NoError(t, err)

	assert.Equal(t, models.CreationTypeArticle, creation.Type)
	assert.Equal(t, "user-a", creation.OwnerID)
	assert.False(t, creation.Published)
	assert.Equal(t, "generated content", creation.Content)
	assert.Len(t, f.store.records, 1)

	own, err := f.service.ListOwn(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, creation.ID, own[0].ID)
}

func TestGenerateArticleProviderFailureWritesNothing(t *testing.T) {
	f := newFixture()
	f.provider.err = ai.ErrProvider

	_, err := f.service.GenerateArticle(context.Background(), Actor{ID: "user-a"}, "topic", 0)
	require.ErrorIs(t, err, ai.ErrProvider)
	assert.Empty(t, f.store.records)
}

func TestGenerateArticleRequiresPrompt(t *testing.T) {
	f := newFixture()

	_, err := f.service.GenerateArticle(context.Background(), Actor{ID: "user-a"}, "   ", 0)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.provider.calls)
}

func TestFreeQuotaExhausted(t *testing.T) {
	f := newFixture()
	f.usage.quota = 2
	actor := Actor{ID: "user-a"}

	for i := 0; i < 2; i++ {
		_, err := f.service.GenerateBlogTitles(context.Background(), actor, "keyword")
		require.NoError(t, err)
	}

	_, err := f.service.GenerateBlogTitles(context.Background(), actor, "keyword")
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Len(t, f.store.records, 2)
}

func TestPremiumSkipsQuota(t *testing.T) {
	f := newFixture()
	f.usage.quota = 1
	actor := Actor{ID: "user-a", Premium: true}

	for i := 0; i < 3; i++ {
		_, err := f.service.GenerateBlogTitles(context.Background(), actor, "keyword")
		require.NoError(t, err)
	}
	assert.Empty(t, f.usage.used)
}

func TestGenerateImageRequiresPremium(t *testing.T) {
	f := newFixture()

	_, err := f.service.GenerateImage(context.Background(), Actor{ID: "user-a"}, "a red fox", false)
	require.ErrorIs(t, err, ErrPremiumRequired)
	assert.Empty(t, f.store.records)
}

func TestGenerateImagePublishedAppearsInFeed(t *testing.T) {
	f := newFixture()
	actor := Actor{ID: "user-a", Premium: true}

	creation, err := f.service.GenerateImage(context.Background(), actor, "a red fox", true)
	require.NoError(t, err)
	assert.True(t, creation.Published)
	assert.Contains(t, creation.Content, "https://cdn.test/creations/")
	assert.Contains(t, creation.Content, "?sig=")
	assert.Len(t, f.objects.puts, 1)

	own, err := f.service.ListOwn(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, own, 1)

	published, err := f.service.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, creation.ID, published[0].ID)
}

func TestListPublishedOmitsUnpublished(t *testing.T) {
	f := newFixture()

	_, err := f.service.GenerateArticle(context.Background(), Actor{ID: "user-a"}, "private draft", 0)
	require.NoError(t, err)

	published, err := f.service.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, published)
}

func TestListPublishedUsesFeedCache(t *testing.T) {
	f := newFixture()
	cached := []models.Creation{{ID: "cached"}}
	f.feed.Set(context.Background(), cached)

	published, err := f.service.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, published)
}

func TestRemoveObjectRejectsMultiWordName(t *testing.T) {
	f := newFixture()
	actor := Actor{ID: "user-a", Premium: true}

	_, err := f.service.RemoveObject(context.Background(), actor, pngHeader, "image/png", "red car")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.provider.calls)
}

func TestRemoveBackgroundRejectsNonImage(t *testing.T) {
	f := newFixture()
	actor := Actor{ID: "user-a", Premium: true}

	_, err := f.service.RemoveBackground(context.Background(), actor, []byte("not an image"), "")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.provider.calls)
}

func TestRemoveBackgroundDeclaredMimeMismatch(t *testing.T) {
	f := newFixture()
	actor := Actor{ID: "user-a", Premium: true}

	_, err := f.service.RemoveBackground(context.Background(), actor, pngHeader, "image/jpeg")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestReviewResumeRejectsNonPDF(t *testing.T) {
	f := newFixture()

	_, err := f.service.ReviewResume(context.Background(), Actor{ID: "user-a"}, []byte("plain text"))
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.store.records)
}

func TestReviewResumeStoresReview(t *testing.T) {
	f := newFixture()

	creation, err := f.service.ReviewResume(context.Background(), Actor{ID: "user-a"}, []byte("%PDF-1.7 fake"))
	require.NoError(t, err)
	assert.Equal(t, models.CreationTypeResumeReview, creation.Type)
	assert.Equal(t, "generated content", creation.Content)
}

func TestToggleLikeAddsThenRemoves(t *testing.T) {
	f := newFixture()
	owner := Actor{ID: "user-a", Premium: true}
	creation, err := f.service.GenerateImage(context.Background(), owner, "a red fox", true)
	require.NoError(t, err)

	result, err := f.service.ToggleLike(context.Background(), "user-b", creation.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.LikeCount)

	result, err = f.service.ToggleLike(context.Background(), "user-b", creation.ID)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.LikeCount)
}

func TestToggleLikeCommutesAcrossUsers(t *testing.T) {
	f := newFixture()
	owner := Actor{ID: "user-a", Premium: true}

	first, err := f.service.GenerateImage(context.Background(), owner, "fox", true)
	require.NoError(t, err)
	second, err := f.service.GenerateImage(context.Background(), owner, "owl", true)
	require.NoError(t, err)

	_, err = f.service.ToggleLike(context.Background(), "user-b", first.ID)
	require.NoError(t, err)
	_, err = f.service.ToggleLike(context.Background(), "user-c", first.ID)
	require.NoError(t, err)

	_, err = f.service.ToggleLike(context.Background(), "user-c", second.ID)
	require.NoError(t, err)
	_, err = f.service.ToggleLike(context.Background(), "user-b", second.ID)
	require.NoError(t, err)

	likesOf := func(id string) []string {
		creation, err := f.store.GetByID(context.Background(), id)
		require.NoError(t, err)
		likes := append([]string(nil), creation.Likes...)
		sort.Strings(likes)
		return likes
	}

	assert.Equal(t, likesOf(first.ID), likesOf(second.ID))
}

func TestToggleLikeUnknownCreation(t *testing.T) {
	f := newFixture()

	_, err := f.service.ToggleLike(context.Background(), "user-b", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestToggleLikeInvalidatesFeed(t *testing.T) {
	f := newFixture()
	owner := Actor{ID: "user-a", Premium: true}
	creation, err := f.service.GenerateImage(context.Background(), owner, "fox", true)
	require.NoError(t, err)

	before := f.feed.invalidated
	_, err = f.service.ToggleLike(context.Background(), "user-b", creation.ID)
	require.NoError(t, err)
	assert.Greater(t, f.feed.invalidated, before)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	f := newFixture()
	creation, err := f.service.GenerateArticle(context.Background(), Actor{ID: "user-a"}, "topic", 0)
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), "user-b", creation.ID)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Len(t, f.store.records, 1)
}

func TestDeleteRemovesAndSecondDeleteFails(t *testing.T) {
	f := newFixture()
	creation, err := f.service.GenerateArticle(context.Background(), Actor{ID: "user-a"}, "topic", 0)
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), "user-a", creation.ID))
	assert.Empty(t, f.store.records)

	err = f.service.Delete(context.Background(), "user-a", creation.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownCreation(t *testing.T) {
	f := newFixture()

	err := f.service.Delete(context.Background(), "user-a", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.store.records)
}

func TestDeleteConsumesNoQuota(t *testing.T) {
	f := newFixture()
	creation, err := f.service.GenerateArticle(context.Background(), Actor{ID: "user-a"}, "topic", 0)
	require.NoError(t, err)

	used := f.usage.used["user-a"]
	require.NoError(t, f.service.Delete(context.Background(), "user-a", creation.ID))
	assert.Equal(t, used, f.usage.used["user-a"])
}

func TestProviderErrorSurfacesUnwrapped(t *testing.T) {
	f := newFixture()
	f.provider.err = errors.New("boom")

	_, err := f.service.GenerateArticle(context.Background(), Actor{ID: "user-a"}, "topic", 0)
	require.Error(t, err)
	assert.Empty(t, f.store.records)
}
