// Package mocks provides shared test doubles for interfaces that cross
// package boundaries.
//
// Mocks use function fields for custom behavior, fall back to default return
// values, and record calls for later assertions:
//
//	svc := &mocks.MockReviewService{
//	    SubmitReviewFn: func(ctx context.Context, cardID, ownerID uuid.UUID, g domain.Grade) (*card_review.ReviewResult, error) {
//	        return nil, card_review.ErrVersionConflict
//	    },
//	}
package mocks
