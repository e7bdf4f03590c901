package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/Abdurahmanit/nodepop/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("nodepop/listing-usecase")

// ListingCache is the read-through cache in front of the stores.
// Get methods return nil, nil on a miss.
type ListingCache interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	SetListing(ctx context.Context, listing *domain.Listing) error
	GetTags(ctx context.Context) ([]*domain.Tag, error)
	SetTags(ctx context.Context, tags []*domain.Tag) error
}

type EventPublisher interface {
	PublishListingCreated(ctx context.Context, listing *domain.Listing) error
}

type ListingUsecase struct {
	repo      domain.ListingRepository
	tags      domain.TagRepository
	cache     ListingCache
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewListingUsecase wires the listing operations. cache, publisher and m may be nil.
func NewListingUsecase(
	repo domain.ListingRepository,
	tags domain.TagRepository,
	cache ListingCache,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ListingUsecase {
	return &ListingUsecase{
		repo:      repo,
		tags:      tags,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateListingInput struct {
	Name    string
	Price   float64
	ForSale bool
	Tags    []string
}

// Search executes a validated filter against the listing store.
func (uc *ListingUsecase) Search(ctx context.Context, spec domain.FilterSpec) ([]*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Search")
	defer span.End()

	uc.metrics.IncSearches()
	listings, err := uc.repo.FindByFilter(ctx, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logger.Error("Failed to search listings", zap.Error(err), zap.Any("filter", spec))
		return nil, fmt.Errorf("ListingUsecase.Search: %w", err)
	}
	span.SetAttributes(attribute.Int("listings.count", len(listings)))
	return listings, nil
}

func (uc *ListingUsecase) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.GetByID")
	defer span.End()
	span.SetAttributes(attribute.String("listing.id", id))

	if uc.cache != nil {
		cached, err := uc.cache.GetListing(ctx, id)
		if err != nil {
			uc.logger.Warn("Listing cache read failed", zap.String("listing_id", id), zap.Error(err))
		} else if cached != nil {
			uc.logger.Debug("Listing served from cache", zap.String("listing_id", id))
			return cached, nil
		}
	}

	listing, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrListingNotFound) {
			span.RecordError(err)
			uc.logger.Error("Failed to find listing", zap.String("listing_id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("ListingUsecase.GetByID: %w", err)
	}
	uc.cacheListing(ctx, listing)
	return listing, nil
}

func (uc *ListingUsecase) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.ListTags")
	defer span.End()

	if uc.cache != nil {
		cached, err := uc.cache.GetTags(ctx)
		if err != nil {
			uc.logger.Warn("Tag cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	tags, err := uc.tags.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to list tags", zap.Error(err))
		return nil, fmt.Errorf("ListingUsecase.ListTags: %w", err)
	}
	if uc.cache != nil {
		if err := uc.cache.SetTags(ctx, tags); err != nil {
			uc.logger.Warn("Tag cache write failed", zap.Error(err))
		}
	}
	return tags, nil
}

// Create builds a listing from already validated input and persists it once.
// photo is the stored filename returned by the ingestion pipeline, nil when
// the request carried no upload.
func (uc *ListingUsecase) Create(ctx context.Context, input CreateListingInput, photo *string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Create")
	defer span.End()

	listing := &domain.Listing{
		Name:      strings.TrimSpace(input.Name),
		Price:     input.Price,
		ForSale:   input.ForSale,
		Tags:      normalizeTags(input.Tags),
		Photo:     photo,
		CreatedAt: uc.now().UTC(),
	}

	if err := uc.repo.Create(ctx, listing); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logger.Error("Failed to create listing in repository", zap.Error(err), zap.String("name", listing.Name))
		return nil, fmt.Errorf("ListingUsecase.Create: %w", err)
	}
	span.SetAttributes(attribute.String("listing.id", listing.ID), attribute.Bool("listing.has_photo", listing.HasPhoto()))
	uc.metrics.IncListingsCreated()

	uc.cacheListing(ctx, listing)
	if uc.publisher != nil {
		if err := uc.publisher.PublishListingCreated(ctx, listing); err != nil {
			uc.logger.Warn("Failed to publish listing.created", zap.String("listing_id", listing.ID), zap.Error(err))
		}
	}

	uc.logger.Info("Listing created", zap.String("listing_id", listing.ID), zap.Bool("has_photo", listing.HasPhoto()))
	return listing, nil
}

func (uc *ListingUsecase) cacheListing(ctx context.Context, listing *domain.Listing) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.SetListing(ctx, listing); err != nil {
		uc.logger.Warn("Listing cache write failed", zap.String("listing_id", listing.ID), zap.Error(err))
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
