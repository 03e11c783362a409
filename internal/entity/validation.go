package entity

// ValidationResult reports business-rule checks against a normalized record.
// It is always returned, never raised: invalid records flow through the
// pipeline with their result attached so callers decide what to do with them.
type ValidationResult struct {
	IsValid            bool     `json:"isValid"`
	MissingFields      []string `json:"missingFields,omitempty"`
	InvalidPrice       bool     `json:"invalidPrice"`
	InvalidStatus      bool     `json:"invalidStatus"`
	InvalidCoordinates bool     `json:"invalidCoordinates"`
}

// QualityTier buckets a completeness score.
type QualityTier string

const (
	TierHigh   QualityTier = "high"
	TierMedium QualityTier = "medium"
	TierLow    QualityTier = "low"
)

// QualityReport is a derived, recomputed-on-demand completeness measure.
// It is advisory output, never a gate, and is not persisted as source of truth.
type QualityReport struct {
	Score         int         `json:"score"` // 0-100
	Tier          QualityTier `json:"tier"`
	MissingFields []string    `json:"missingFields,omitempty"`
	Suggestions   []string    `json:"suggestions,omitempty"`
}
