package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

type InsightRepo struct {
	pool *pgxpool.Pool
}

func NewInsightRepo(pool *pgxpool.Pool) *InsightRepo {
	return &InsightRepo{pool: pool}
}

func (r *InsightRepo) GetByID(ctx context.Context, id string) (*models.DailyInsight, error) {
	in := &models.DailyInsight{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_date, surah_number, ayah_number, story_content, topics, is_published, created_at
		FROM daily_insights WHERE id = $1
	`, id).Scan(&in.ID, &in.DisplayDate, &in.SurahNumber, &in.AyahNumber, &in.StoryContent,
		&in.Topics, &in.IsPublished, &in.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return in, nil
}

// RecentRefs returns the verse references of the most recently written insights.
func (r *InsightRepo) RecentRefs(ctx context.Context, limit int) ([]models.VerseRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT surah_number, ayah_number FROM daily_insights
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []models.VerseRef{}
	for rows.Next() {
		var ref models.VerseRef
		if err := rows.Scan(&ref.Surah, &ref.Ayah); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SaveBatch upserts all insights in one transaction keyed by day. Either every
// row is written or none is.
func (r *InsightRepo) SaveBatch(ctx context.Context, insights []*models.DailyInsight) error {
	now := time.Now().UTC()
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, in := range insights {
			in.CreatedAt = now
			batch.Queue(`
				INSERT INTO daily_insights (id, display_date, surah_number, ayah_number, story_content, topics, is_published, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET
					display_date = EXCLUDED.display_date,
					surah_number = EXCLUDED.surah_number,
					ayah_number = EXCLUDED.ayah_number,
					story_content = EXCLUDED.story_content,
					topics = EXCLUDED.topics,
					is_published = EXCLUDED.is_published,
					created_at = EXCLUDED.created_at
			`, in.ID, in.DisplayDate, in.SurahNumber, in.AyahNumber, in.StoryContent, in.Topics, in.IsPublished, in.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *InsightRepo) MarkPublished(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE daily_insights SET is_published = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
