package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofuq-backend/internal/cache"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

type memLock struct {
	mu      sync.Mutex
	lastRun string
	err     error
}

func (l *memLock) Acquire(_ context.Context, day string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.lastRun == day {
		return false, nil
	}
	l.lastRun = day
	return true, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	output  string
	err     error
	calls   int
	prompts []string
}

func (g *fakeGenerator) GenerateJSON(_ context.Context, _, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return g.output, g.err
}

type fakeStore struct {
	mu        sync.Mutex
	insights  map[string]*models.DailyInsight
	refs      []models.VerseRef
	refsErr   error
	getErr    error
	saveErr   error
	saveCalls int
	gets      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{insights: map[string]*models.DailyInsight{}}
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*models.DailyInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	in, ok := s.insights[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *in
	return &cp, nil
}

func (s *fakeStore) RecentRefs(_ context.Context, limit int) ([]models.VerseRef, error) {
	if s.refsErr != nil {
		return nil, s.refsErr
	}
	if len(s.refs) > limit {
		return s.refs[:limit], nil
	}
	return s.refs, nil
}

func (s *fakeStore) SaveBatch(_ context.Context, batch []*models.DailyInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, in := range batch {
		s.insights[in.ID] = in
	}
	return nil
}

func (s *fakeStore) MarkPublished(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.insights[id]
	if !ok {
		return errNotFound
	}
	in.IsPublished = true
	return nil
}

var errNotFound = repository.ErrNotFound

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []models.WSMessage
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, msg models.WSMessage) error {
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	b.mu.Unlock()
	return nil
}

func items(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"surahNumber":  i + 1,
			"ayahNumber":   i + 10,
			"storyContent": fmt.Sprintf("reflection %d", i),
			"topics":       []string{"الصبر"},
		}
	}
	return out
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

type fixture struct {
	svc    *Service
	lock   *memLock
	gen    *fakeGenerator
	store  *fakeStore
	events *fakeBroadcaster
}

func newFixture(t *testing.T, output string) *fixture {
	t.Helper()
	f := &fixture{
		lock:   &memLock{},
		gen:    &fakeGenerator{output: output},
		store:  newFakeStore(),
		events: &fakeBroadcaster{},
	}
	svc, err := NewService(f.lock, f.gen, f.store, cache.NewMemory(), f.events)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 12, 28, 22, 0, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func TestGenerateWeekly_WritesSevenConsecutiveDays(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))
	f.store.refs = []models.VerseRef{{Surah: 2, Ayah: 255}, {Surah: 94, Ayah: 5}}

	res := f.svc.GenerateWeekly(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 7, res.Count)

	want := []string{"2026-12-28", "2026-12-29", "2026-12-30", "2026-12-31", "2027-01-01", "2027-01-02", "2027-01-03"}
	for i, day := range want {
		in, ok := f.store.insights[day]
		require.True(t, ok, day)
		assert.Equal(t, i+1, in.SurahNumber)
		assert.Equal(t, day, models.DayString(in.DisplayDate))
		assert.True(t, in.IsPublished)
	}

	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "2:255, 94:5")
	require.Len(t, f.events.msgs, 1)
	assert.Equal(t, models.EventInsightGenerated, f.events.msgs[0].Type)
}

func TestGenerateWeekly_OncePerDay(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))

	first := f.svc.GenerateWeekly(context.Background())
	require.True(t, first.Success)

	second := f.svc.GenerateWeekly(context.Background())
	assert.Equal(t, models.GenerationResult{Success: false, Error: MsgStillAvailable}, second)

	// Even with today's row gone the lock still holds for the day.
	delete(f.store.insights, "2026-12-28")
	third := f.svc.GenerateWeekly(context.Background())
	assert.Equal(t, models.GenerationResult{Success: false, Error: MsgAlreadyGenerated}, third)
	assert.Equal(t, 1, f.gen.calls)
}

func TestGenerateWeekly_WaitsUntilBatchRunsOut(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))
	ctx := context.Background()

	require.True(t, f.svc.GenerateWeekly(ctx).Success)
	before := *f.store.insights["2026-12-29"]

	// Next day: the lock is free but the stored batch still covers today.
	f.svc.now = func() time.Time { return time.Date(2026, 12, 29, 1, 0, 0, 0, time.UTC) }
	f.gen.output = strings.Replace(encode(t, items(7)), "reflection 0", "regenerated", 1)
	res := f.svc.GenerateWeekly(ctx)
	assert.Equal(t, models.GenerationResult{Success: false, Error: MsgStillAvailable}, res)
	assert.Equal(t, 1, f.gen.calls)
	assert.Equal(t, before.StoryContent, f.store.insights["2026-12-29"].StoryContent)
	assert.Equal(t, before.SurahNumber, f.store.insights["2026-12-29"].SurahNumber)

	// The day after the last stored insight triggers a new batch.
	f.svc.now = func() time.Time { return time.Date(2027, 1, 4, 1, 0, 0, 0, time.UTC) }
	res = f.svc.GenerateWeekly(ctx)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, f.gen.calls)
	assert.Equal(t, "regenerated", f.store.insights["2027-01-04"].StoryContent)
}

func TestGenerateWeekly_StoreReadErrorSkips(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))
	f.store.getErr = errors.New("connection refused")

	res := f.svc.GenerateWeekly(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "connection refused")
	assert.Zero(t, f.gen.calls)
	assert.Empty(t, f.lock.lastRun, "lock must not be consumed")
}

func TestGenerateWeekly_RecentRefsFailureUsesEmptyBlocklist(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))
	f.store.refsErr = errors.New("timeout")

	res := f.svc.GenerateWeekly(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 7, res.Count)
	require.Len(t, f.gen.prompts, 1)
	assert.NotContains(t, f.gen.prompts[0], "DO NOT use any of these verse references")
}

func TestGenerateWeekly_ConcurrentCallersGenerateOnce(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))

	var wg sync.WaitGroup
	results := make([]models.GenerationResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.GenerateWeekly(context.Background())
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, r := range results {
		if r.Success {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.gen.calls)
}

func TestGenerateWeekly_LockErrorMeansNotAcquired(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))
	f.lock.err = errors.New("deadline exceeded")

	res := f.svc.GenerateWeekly(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, MsgAlreadyGenerated, res.Error)
	assert.Zero(t, f.gen.calls)
}

func TestGenerateWeekly_RejectsInvalidOutputWithoutWriting(t *testing.T) {
	six := items(6)
	badSurah := items(7)
	badSurah[3]["surahNumber"] = 115
	emptyStory := items(7)
	emptyStory[6]["storyContent"] = ""
	noTopics := items(7)
	delete(noTopics[0], "topics")
	stringAyah := items(7)
	stringAyah[1]["ayahNumber"] = "5"

	tests := []struct {
		name   string
		output string
	}{
		{"six items", encode(t, six)},
		{"surah out of range", encode(t, badSurah)},
		{"empty story", encode(t, emptyStory)},
		{"missing topics", encode(t, noTopics)},
		{"non numeric ayah", encode(t, stringAyah)},
		{"not json", "Here are your insights!"},
		{"object not array", `{"items": []}`},
		{"empty", "   "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.output)
			res := f.svc.GenerateWeekly(context.Background())
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
			assert.Zero(t, f.store.saveCalls)
			assert.Empty(t, f.events.msgs)
		})
	}
}

func TestGenerateWeekly_AcceptsFencedOutput(t *testing.T) {
	f := newFixture(t, "```json\n"+encode(t, items(7))+"\n```")
	res := f.svc.GenerateWeekly(context.Background())
	assert.True(t, res.Success, res.Error)
}

func TestGenerateWeekly_GeneratorAndStoreFailures(t *testing.T) {
	f := newFixture(t, "")
	f.gen.err = errors.New("quota exceeded")
	res := f.svc.GenerateWeekly(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "quota exceeded")

	g := newFixture(t, encode(t, items(7)))
	g.store.saveErr = errors.New("tx aborted")
	res = g.svc.GenerateWeekly(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "tx aborted")
	assert.Empty(t, g.store.insights)
}

func TestGetForDay_ReadThroughCache(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))
	ctx := context.Background()

	_, err := f.svc.GetForDay(ctx, "2026-12-28")
	assert.ErrorIs(t, err, errNotFound)

	require.True(t, f.svc.GenerateWeekly(ctx).Success)

	first, err := f.svc.GetForDay(ctx, "2026-12-28")
	require.NoError(t, err)
	second, err := f.svc.GetForDay(ctx, "2026-12-28")
	require.NoError(t, err)
	assert.Equal(t, first.StoryContent, second.StoryContent)
	assert.Equal(t, 2, f.store.gets, "one miss before generation, one fill after")
}

func TestMarkPublished_InvalidatesCache(t *testing.T) {
	f := newFixture(t, encode(t, items(7)))
	ctx := context.Background()
	require.True(t, f.svc.GenerateWeekly(ctx).Success)
	f.store.insights["2026-12-29"].IsPublished = false

	in, err := f.svc.GetForDay(ctx, "2026-12-29")
	require.NoError(t, err)
	assert.False(t, in.IsPublished)

	require.NoError(t, f.svc.MarkPublished(ctx, "2026-12-29"))
	in, err = f.svc.GetForDay(ctx, "2026-12-29")
	require.NoError(t, err)
	assert.True(t, in.IsPublished)

	assert.ErrorIs(t, f.svc.MarkPublished(ctx, "1999-01-01"), errNotFound)
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, basePrompt, BuildPrompt(nil))
	p := BuildPrompt([]models.VerseRef{{Surah: 1, Ayah: 1}})
	assert.True(t, strings.HasSuffix(p, "DO NOT use any of these verse references: 1:1"))
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"[1]", "[1]"},
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"  ```json[1]```  ", "[1]"},
		{"\n```JSON\n[1, 2]```", "[1, 2]"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, stripCodeFences(tc.in), tc.in)
	}
}
