// Package insights generates and serves the daily Tadabbur reflections. A
// batch of seven days is produced at most once per calendar day.
package insights

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"ofuq-backend/internal/cache"
	"ofuq-backend/internal/metrics"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/repository"
)

const (
	BatchSize       = 7
	RecentRefsLimit = 30
	cacheTTL        = time.Hour

	MsgAlreadyGenerated = "Already generated today"
	MsgStillAvailable   = "Insights are still available for today"
)

//go:embed batch_schema.json
var batchSchemaJSON []byte

// Lock grants the right to generate once per day.
type Lock interface {
	Acquire(ctx context.Context, day string) (bool, error)
}

// Generator returns the raw model text for a prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, systemPrompt, prompt string) (string, error)
}

type Store interface {
	GetByID(ctx context.Context, id string) (*models.DailyInsight, error)
	RecentRefs(ctx context.Context, limit int) ([]models.VerseRef, error)
	SaveBatch(ctx context.Context, insights []*models.DailyInsight) error
	MarkPublished(ctx context.Context, id string) error
}

// Broadcaster fans an event out to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg models.WSMessage) error
}

type Service struct {
	lock   Lock
	gen    Generator
	store  Store
	cache  cache.Store
	events Broadcaster
	now    func() time.Time
	schema *jsonschema.Schema
}

type generatedItem struct {
	SurahNumber  int      `json:"surahNumber"`
	AyahNumber   int      `json:"ayahNumber"`
	StoryContent string   `json:"storyContent"`
	Topics       []string `json:"topics"`
}

func NewService(lock Lock, gen Generator, store Store, c cache.Store, events Broadcaster) (*Service, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(batchSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse insight schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema://insight-batch.json", doc); err != nil {
		return nil, fmt.Errorf("add insight schema: %w", err)
	}
	sch, err := compiler.Compile("schema://insight-batch.json")
	if err != nil {
		return nil, fmt.Errorf("compile insight schema: %w", err)
	}

	return &Service{
		lock:   lock,
		gen:    gen,
		store:  store,
		cache:  c,
		events: events,
		now:    time.Now,
		schema: sch,
	}, nil
}

// Today is the calendar day the service considers current.
func (s *Service) Today() string {
	return models.DayString(s.now().UTC())
}

// GenerateWeekly writes insights for today and the six following days once
// the previous batch has run out. It returns Success=false without side
// effects when today already has an insight or the day's lock is taken, and
// writes nothing if any step after acquiring the lock fails.
func (s *Service) GenerateWeekly(ctx context.Context) models.GenerationResult {
	start := time.Now()
	today := s.Today()

	if _, err := s.store.GetByID(ctx, today); err == nil {
		metrics.InsightGenerations.WithLabelValues("skipped").Inc()
		return models.GenerationResult{Success: false, Error: MsgStillAvailable}
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("insights: checking %s failed, skipping generation: %v", today, err)
		metrics.InsightGenerations.WithLabelValues("skipped").Inc()
		return models.GenerationResult{Success: false, Error: fmt.Sprintf("check existing insight: %v", err)}
	}

	acquired, err := s.lock.Acquire(ctx, today)
	if err != nil {
		log.Printf("insights: lock acquisition failed for %s: %v", today, err)
	}
	if !acquired {
		log.Printf("insights: generation already ran for %s, skipping", today)
		metrics.InsightGenerations.WithLabelValues("skipped").Inc()
		return models.GenerationResult{Success: false, Error: MsgAlreadyGenerated}
	}

	batch, err := s.generate(ctx, today)
	if err != nil {
		log.Printf("insights: weekly generation failed: %v", err)
		metrics.InsightGenerations.WithLabelValues("failed").Inc()
		return models.GenerationResult{Success: false, Error: err.Error()}
	}

	keys := make([]string, len(batch))
	for i, in := range batch {
		keys[i] = cacheKey(in.ID)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("insights: cache invalidation failed: %v", err)
	}

	if s.events != nil {
		msg := models.WSMessage{Type: models.EventInsightGenerated, Payload: map[string]any{"from": today, "count": len(batch)}}
		if err := s.events.Broadcast(ctx, msg); err != nil {
			log.Printf("insights: broadcast failed: %v", err)
		}
	}

	metrics.InsightGenerations.WithLabelValues("generated").Inc()
	metrics.InsightGenerationDuration.Observe(time.Since(start).Seconds())
	log.Printf("insights: generated %d insights starting %s", len(batch), today)
	return models.GenerationResult{Success: true, Count: len(batch)}
}

func (s *Service) generate(ctx context.Context, today string) ([]*models.DailyInsight, error) {
	recent, err := s.store.RecentRefs(ctx, RecentRefsLimit)
	if err != nil {
		log.Printf("insights: loading recent references failed, continuing without a blocklist: %v", err)
		recent = nil
	}

	text, err := s.gen.GenerateJSON(ctx, SystemPrompt(), BuildPrompt(recent))
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	items, err := s.parse(text)
	if err != nil {
		return nil, err
	}

	batch := make([]*models.DailyInsight, len(items))
	for i, item := range items {
		day := models.AddDays(today, i)
		display, _ := time.Parse(models.DayLayout, day)
		topics := item.Topics
		if topics == nil {
			topics = []string{}
		}
		batch[i] = &models.DailyInsight{
			ID:           day,
			DisplayDate:  display,
			SurahNumber:  item.SurahNumber,
			AyahNumber:   item.AyahNumber,
			StoryContent: item.StoryContent,
			Topics:       topics,
			IsPublished:  true,
		}
	}

	if err := s.store.SaveBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("save insights: %w", err)
	}
	return batch, nil
}

func (s *Service) parse(text string) ([]generatedItem, error) {
	body := stripCodeFences(text)
	if body == "" {
		return nil, errors.New("generator returned an empty response")
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON from generator: %w", err)
	}
	if err := s.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("generator output does not match schema: %w", err)
	}

	var items []generatedItem
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("decode generator output: %w", err)
	}
	return items, nil
}

func cacheKey(day string) string { return "insight:" + day }

// GetForDay reads through the cache. A missing day returns the store's
// not-found error and is not cached.
func (s *Service) GetForDay(ctx context.Context, day string) (*models.DailyInsight, error) {
	var cached models.DailyInsight
	if ok, err := s.cache.Get(ctx, cacheKey(day), &cached); err != nil {
		log.Printf("insights: cache read failed for %s: %v", day, err)
	} else if ok {
		return &cached, nil
	}

	in, err := s.store.GetByID(ctx, day)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey(day), in, cacheTTL); err != nil {
		log.Printf("insights: cache write failed for %s: %v", day, err)
	}
	return in, nil
}

func (s *Service) MarkPublished(ctx context.Context, id string) error {
	if err := s.store.MarkPublished(ctx, id); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey(id))
}
