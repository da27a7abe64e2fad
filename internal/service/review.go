package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// ReviewService implements the business logic for product reviews.
// Reviews are purchase-gated: only buyers with a delivered order
// containing the product may review it, once per product.
type ReviewService struct {
	reviews  repository.ReviewRepository
	orders   repository.OrderRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(reviews repository.ReviewRepository, orders repository.OrderRepository, products repository.ProductRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		orders:   orders,
		products: products,
		logger:   logger,
	}
}

// ReviewInput holds the parameters for creating or updating a review.
type ReviewInput struct {
	Rating  int
	Comment string
}

// CreateReview adds a review for a product the user received.
func (s *ReviewService) CreateReview(ctx context.Context, userID, productID string, input ReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	delivered, err := s.orders.HasDeliveredProduct(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("check delivered purchase: %w", err)
	}
	if !delivered {
		return nil, apperrors.InvalidInput("only delivered purchases can be reviewed")
	}

	now := time.Now().UTC()
	review := &domain.Review{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("product already reviewed")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", productID),
		slog.Int("rating", input.Rating),
	)

	return review, nil
}

// GetReview retrieves a review by id.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListProductReviews returns a page of a product's reviews.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID string, params pagination.Params) (pagination.Result[domain.Review], error) {
	reviews, total, err := s.reviews.ListByProduct(ctx, productID, params)
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list product reviews: %w", err)
	}
	return pagination.NewResult(reviews, total, params), nil
}

// ListUserReviews returns all reviews written by a user.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID string) ([]domain.Review, error) {
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}
	return reviews, nil
}

// ProductRating aggregates a product's review statistics.
type ProductRating struct {
	Summary      *domain.ReviewSummary `json:"summary"`
	Distribution map[int]int           `json:"distribution"`
}

// GetProductRating returns the average, count, and per-star distribution
// for a product.
func (s *ReviewService) GetProductRating(ctx context.Context, productID string) (*ProductRating, error) {
	summary, err := s.reviews.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	distribution, err := s.reviews.Distribution(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get review distribution: %w", err)
	}

	return &ProductRating{Summary: summary, Distribution: distribution}, nil
}

// UpdateReview changes a review. Only its author or an admin may edit it.
func (s *ReviewService) UpdateReview(ctx context.Context, actor *domain.User, id string, input ReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}

	if review.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("review belongs to another user")
	}

	review.Rating = input.Rating
	review.Comment = input.Comment

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	return review, nil
}

// DeleteReview removes a review. Only its author or an admin may delete it.
func (s *ReviewService) DeleteReview(ctx context.Context, actor *domain.User, id string) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}

	if review.UserID != actor.ID && !actor.IsAdmin() {
		return apperrors.Forbidden("review belongs to another user")
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted", slog.String("review_id", id))
	return nil
}
