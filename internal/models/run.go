package models

import "time"

// Corpus is a persisted signal corpus produced by one build
type Corpus struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Entries   []SignalEntry `json:"entries"`
}

// AnalysisRun is a persisted scoring pass
type AnalysisRun struct {
	ID            string             `json:"id"`
	CorpusID      string             `json:"corpus_id"`
	Threshold     float64            `json:"threshold"`
	DocumentCount int                `json:"document_count"`
	StartedAt     time.Time          `json:"started_at"`
	CompletedAt   time.Time          `json:"completed_at"`
	Result        *AggregationResult `json:"result"`
}
