package models

import "time"

// GenerationLockID identifies the singleton row guarding daily insight generation.
const GenerationLockID = "tadabbur_generation_lock"

// DailyInsight is keyed by the calendar day it is shown on.
type DailyInsight struct {
	ID           string    `json:"id"`
	DisplayDate  time.Time `json:"display_date"`
	SurahNumber  int       `json:"surah_number"`
	AyahNumber   int       `json:"ayah_number"`
	StoryContent string    `json:"story_content"`
	Topics       []string  `json:"topics"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"`
}

type VerseRef struct {
	Surah int `json:"surah"`
	Ayah  int `json:"ayah"`
}

type GenerationResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}
