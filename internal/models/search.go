package models

// Answer represents a retrieved verse with its relevance metrics
type Answer struct {
	VerseID            string  `json:"verse_id"`
	Verse              int     `json:"verse"`
	Text               string  `json:"text"`
	Translation        string  `json:"translation"`
	EnglishTranslation string  `json:"english_translation"`
	Distance           float64 `json:"distance"`
	RelevanceScore     float64 `json:"relevance_score"`
	ContextPrecision   float64 `json:"context_precision"`
	// AudioLang is the language code whose translation audio belongs with this answer
	AudioLang string `json:"audio_lang"`
}

// AskRequest is the request for a question
type AskRequest struct {
	Query string `json:"query" validate:"required"`
	Lang  string `json:"lang"`
	Limit int    `json:"limit" validate:"min=1,max=20"`
}

// AskResponse is the response for a question.
// Status is one of "answered", "low_relevance" or "no_matches".
type AskResponse struct {
	Query         string   `json:"query"`
	Lang          string   `json:"lang"`
	Status        string   `json:"status"`
	Message       string   `json:"message,omitempty"`
	TopSimilarity *float64 `json:"top_similarity,omitempty"`
	Answers       []Answer `json:"answers"`
}

// SampleQuestionsResponse lists suggested questions for a display language
type SampleQuestionsResponse struct {
	Lang      string   `json:"lang"`
	Questions []string `json:"questions"`
}

// IndexHealthResponse describes the vector index state
type IndexHealthResponse struct {
	Status     string `json:"status"`
	Backend    string `json:"backend"`
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Ready      bool   `json:"ready"`
}
