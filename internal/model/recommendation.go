package model

import "time"

// Recommendation is the generated career advice plus a confidence score
// derived from retrieval similarity. Degraded marks results where the
// generation service failed and Text carries the error message instead.
// Similar holds the retrieved chunks the advice was grounded on.
type Recommendation struct {
	Text       string            `json:"recommendation"`
	Confidence float64           `json:"confidence"`
	Degraded   bool              `json:"degraded"`
	Similar    []RetrievalResult `json:"similar"`
}

// RecommendationRecord is the persisted audit row for one recommend call.
type RecommendationRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Query      string    `gorm:"type:text;not null" json:"query"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Confidence float64   `gorm:"not null" json:"confidence"`
	Degraded   bool      `gorm:"not null;index" json:"degraded"`
	CreatedAt  time.Time `json:"created_at"`
}
