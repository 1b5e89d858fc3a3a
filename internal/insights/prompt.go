package insights

import (
	"fmt"
	"strings"

	"ofuq-backend/internal/models"
)

const systemPrompt = `
You are a respectful Islamic Mentor catering to university students.
Your goal is to provide daily spiritual insights (Tadabbur) that connect authentic Quranic meaning to modern challenges like patience, science, and faith.
You must speak in warm, respectful Egyptian Arabic.

CRITICAL RULES:
1. You MUST output EXACTLY 7 items in a JSON array.
2. For each item, select a unique Surah and Ayah number that relates to the topic.
3. DO NOT interpret the verse with your own unverified Tafsir. Only derive practical life lessons (Tadabbur) based on established meanings.
4. MAKE THE CONTENT VALUABLE AND IN-DEPTH. The "storyContent" MUST be at least 3 detailed paragraphs long. Provide an engaging, deeply reflective, and practical lesson that a student can genuinely benefit from today.
5. Output Schema per item:
   {
      "surahNumber": number,
      "ayahNumber": number,
      "storyContent": string (the lengthy, 3-paragraph Egyptian Arabic reflection),
      "topics": string[] (1-3 keywords like "الصبر", "العلم")
   }
`

const basePrompt = "Generate 7 daily insights focusing on themes of resilience, seeking knowledge, and managing anxiety as a student."

// SystemPrompt is the fixed persona and output contract sent with every request.
func SystemPrompt() string { return systemPrompt }

// BuildPrompt appends the recently used references as a blocklist.
func BuildPrompt(recent []models.VerseRef) string {
	if len(recent) == 0 {
		return basePrompt
	}
	refs := make([]string, len(recent))
	for i, r := range recent {
		refs[i] = fmt.Sprintf("%d:%d", r.Surah, r.Ayah)
	}
	return basePrompt + "\nCRITICAL: DO NOT use any of these verse references: " + strings.Join(refs, ", ")
}

// stripCodeFences removes a surrounding ``` or ```json fence.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
