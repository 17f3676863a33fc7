package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
)

type mockSportRepo struct {
	sports    map[string]models.SportAvailability
	listCalls int
}

func (m *mockSportRepo) ListAvailability(_ context.Context, termID string) ([]models.SportAvailability, error) {
	m.listCalls++
	var out []models.SportAvailability
	for _, sport := range m.sports {
		if sport.TermID == termID {
			out = append(out, sport)
		}
	}
	return out, nil
}

func (m *mockSportRepo) GetAvailability(_ context.Context, id string) (*models.SportAvailability, error) {
	sport, ok := m.sports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sport, nil
}

func (m *mockSportRepo) ExistsByName(_ context.Context, termID, name string) (bool, error) {
	for _, sport := range m.sports {
		if sport.TermID == termID && strings.EqualFold(sport.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSportRepo) Create(_ context.Context, sport *models.Sport) error {
	sport.ID = uuid.NewString()
	m.sports[sport.ID] = *availabilityOf(*sport, 0)
	return nil
}

type mockStudentLister struct {
	rows       []models.StudentRow
	lastFilter models.StudentFilter
}

func (m *mockStudentLister) List(_ context.Context, filter models.StudentFilter) ([]models.StudentRow, error) {
	m.lastFilter = filter
	return append([]models.StudentRow(nil), m.rows...), nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memoryCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if raw, ok := c.entries[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	raw, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	c.entries[key] = raw
	return n, nil
}

// interleavingSportRepo runs during once, after the listing has been read but
// before it is returned to the caller.
type interleavingSportRepo struct {
	*mockSportRepo
	during func()
}

func (r *interleavingSportRepo) ListAvailability(ctx context.Context, termID string) ([]models.SportAvailability, error) {
	out, err := r.mockSportRepo.ListAvailability(ctx, termID)
	if during := r.during; during != nil {
		r.during = nil
		during()
	}
	return out, err
}

type fakeHub struct {
	subscribers int
	published   []interface{}
}

func (h *fakeHub) Publish(_ context.Context, _ string, msgType string, data interface{}) error {
	if msgType != MessageSportsAvailability {
		return nil
	}
	h.published = append(h.published, data)
	return nil
}

func (h *fakeHub) Count(string) int { return h.subscribers }

type sportFixture struct {
	svc      *SportService
	repo     *mockSportRepo
	terms    *mockTermRepo
	students *mockStudentLister
	cache    *CacheService
	notifier *recordingNotifier
	term     models.Term
}

func newSportFixture(t *testing.T) *sportFixture {
	t.Helper()
	term := models.Term{ID: uuid.NewString(), Name: "Term 1", Year: 2026, IsActive: true}
	f := &sportFixture{
		repo:     &mockSportRepo{sports: map[string]models.SportAvailability{}},
		terms:    newMockTermRepo(term),
		students: &mockStudentLister{},
		cache:    NewCacheService(newMemoryCache(), NewMetricsService(), time.Minute, nil, true),
		notifier: &recordingNotifier{},
		term:     term,
	}
	f.svc = NewSportService(f.repo, f.terms, f.students, f.cache, f.notifier, nil, nil, time.Minute)
	return f
}

func TestSportServiceListUsesActiveTermAndCache(t *testing.T) {
	f := newSportFixture(t)
	_, err := f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: f.term.ID, Name: "Netball", Capacity: 10})
	require.NoError(t, err)

	sports, hit, err := f.svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, sports, 1)
	assert.Equal(t, 10, sports[0].Remaining)

	_, hit, err = f.svc.List(context.Background(), f.term.ID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.repo.listCalls)
}

func TestSportServiceListWithoutActiveTerm(t *testing.T) {
	f := newSportFixture(t)
	f.terms = newMockTermRepo()
	f.svc = NewSportService(f.repo, f.terms, f.students, nil, nil, nil, nil, 0)

	_, _, err := f.svc.List(context.Background(), "")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSportServiceCreate(t *testing.T) {
	f := newSportFixture(t)

	sport, err := f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: f.term.ID, Name: " Soccer ", Capacity: 3})
	require.NoError(t, err)
	assert.Equal(t, "Soccer", sport.Name)
	assert.Equal(t, 0, sport.CurrentCount)
	assert.False(t, sport.IsFull)
	assert.Equal(t, []string{f.term.ID}, f.notifier.terms)

	_, err = f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: f.term.ID, Name: "soccer", Capacity: 3})
	require.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: f.term.ID, Name: "Tennis", Capacity: 0})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: uuid.NewString(), Name: "Tennis", Capacity: 2})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSportServiceGetMalformedID(t *testing.T) {
	f := newSportFixture(t)

	_, err := f.svc.Get(context.Background(), "abc")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSportServiceRegistrationsSortedByLastName(t *testing.T) {
	f := newSportFixture(t)
	sport, err := f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: f.term.ID, Name: "Hockey", Capacity: 5})
	require.NoError(t, err)
	f.students.rows = []models.StudentRow{
		{Student: models.Student{Name: "Zoe Young"}},
		{Student: models.Student{Name: "adam smith"}},
		{Student: models.Student{Name: "Beth Adams"}},
	}

	rows, err := f.svc.Registrations(context.Background(), sport.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Beth Adams", rows[0].Name)
	assert.Equal(t, "adam smith", rows[1].Name)
	assert.Equal(t, "Zoe Young", rows[2].Name)
	assert.Equal(t, sport.ID, f.students.lastFilter.SportID)
}

func TestAvailabilityPublisherInvalidatesAndPushes(t *testing.T) {
	f := newSportFixture(t)
	_, err := f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: f.term.ID, Name: "Rugby", Capacity: 5})
	require.NoError(t, err)
	_, _, err = f.svc.List(context.Background(), f.term.ID)
	require.NoError(t, err)

	hub := &fakeHub{}
	publisher := NewAvailabilityPublisher(f.repo, f.cache, hub, nil)

	publisher.SportsChanged(context.Background(), f.term.ID)
	assert.Empty(t, hub.published)

	_, hit, err := f.svc.List(context.Background(), f.term.ID)
	require.NoError(t, err)
	assert.False(t, hit)

	hub.subscribers = 1
	publisher.SportsChanged(context.Background(), f.term.ID)
	require.Len(t, hub.published, 1)
	sports, ok := hub.published[0].([]models.SportAvailability)
	require.True(t, ok)
	assert.Len(t, sports, 1)
}

func TestSportServiceListSkipsCachingListingReadBeforeChange(t *testing.T) {
	ctx := context.Background()
	f := newSportFixture(t)
	sport, err := f.svc.Create(ctx, dto.CreateSportRequest{TermID: f.term.ID, Name: "Netball", Capacity: 5})
	require.NoError(t, err)

	repo := &interleavingSportRepo{mockSportRepo: f.repo}
	publisher := NewAvailabilityPublisher(f.repo, f.cache, nil, nil)
	svc := NewSportService(repo, f.terms, f.students, f.cache, publisher, nil, nil, time.Minute)
	repo.during = func() {
		changed := f.repo.sports[sport.ID]
		changed.CurrentCount = 1
		changed.Remaining = 4
		f.repo.sports[sport.ID] = changed
		publisher.SportsChanged(ctx, f.term.ID)
	}

	sports, hit, err := svc.List(ctx, f.term.ID)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, sports, 1)
	assert.Equal(t, 5, sports[0].Remaining)

	sports, hit, err = svc.List(ctx, f.term.ID)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, sports, 1)
	assert.Equal(t, 4, sports[0].Remaining)

	_, hit, err = svc.List(ctx, f.term.ID)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestAvailabilityPublisherSnapshot(t *testing.T) {
	f := newSportFixture(t)
	publisher := NewAvailabilityPublisher(f.repo, f.cache, nil, nil)

	msgType, data, err := publisher.Snapshot(context.Background(), f.term.ID)
	require.NoError(t, err)
	assert.Equal(t, MessageSportsAvailability, msgType)
	assert.Equal(t, []models.SportAvailability{}, data)

	_, err = f.svc.Create(context.Background(), dto.CreateSportRequest{TermID: f.term.ID, Name: "Rugby", Capacity: 5})
	require.NoError(t, err)
	_, data, err = publisher.Snapshot(context.Background(), f.term.ID)
	require.NoError(t, err)
	sports, ok := data.([]models.SportAvailability)
	require.True(t, ok)
	require.Len(t, sports, 1)
	assert.Equal(t, 5, sports[0].Remaining)
}
