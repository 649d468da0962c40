package retrieval

import (
	"context"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
	"github.com/Waterproof82/smart-connect-assistant/internal/domain/search/filter"
)

// Repository defines the storage contract for vector retrieval.
type Repository interface {
	SearchKNN(
		ctx context.Context, vector []float32, filters filter.Expression, topK int,
	) ([]domain.ScoredDocument, error)
}
