package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const listingsCollectionName = "anuncios"

type ListingRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewListingRepository(db *mongo.Database, logger *zap.Logger) *ListingRepository {
	return &ListingRepository{
		collection: db.Collection(listingsCollectionName),
		logger:     logger,
	}
}

// EnsureIndexes creates the indexes backing the search filters.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: fieldName, Value: 1}}},
		{Keys: bson.D{{Key: fieldPrice, Value: 1}}},
		{Keys: bson.D{{Key: fieldTags, Value: 1}}},
		{Keys: bson.D{{Key: fieldForSale, Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("%w: create listing indexes: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	doc := toListingDocument(listing)
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidListingData, err)
		}
		r.logger.Error("InsertOne failed", zap.String("collection", listingsCollectionName), zap.Error(err))
		return fmt.Errorf("%w: insert listing: %v", domain.ErrStoreUnavailable, err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("%w: unexpected inserted id type %T", domain.ErrStoreUnavailable, res.InsertedID)
	}
	listing.ID = insertedID.Hex()
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}

	var doc listingDocument
	err = r.collection.FindOne(ctx, bson.M{fieldID: objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("%w: find listing %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	return toDomainListing(&doc), nil
}

func (r *ListingRepository) FindByFilter(ctx context.Context, spec domain.FilterSpec) ([]*domain.Listing, error) {
	if spec.Limit != nil && *spec.Limit == 0 {
		// A zero limit means "no limit" to MongoDB.
		return []*domain.Listing{}, nil
	}

	if spec.Sort != nil && !validFieldPath(spec.Sort.Field) {
		return nil, sortError(spec.Sort, "not a valid document field path")
	}

	query := buildQuery(spec)
	opts := buildFindOptions(spec)
	r.logger.Debug("Finding listings", zap.Any("query", query))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		var serverErr mongo.ServerError
		if spec.Sort != nil && errors.As(err, &serverErr) && (serverErr.HasErrorCode(codeBadValue) || serverErr.HasErrorCode(codeFailedToParse)) {
			return nil, sortError(spec.Sort, err.Error())
		}
		return nil, fmt.Errorf("%w: find listings: %v", domain.ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode listings: %v", domain.ErrStoreUnavailable, err)
	}
	return toDomainListings(docs), nil
}

// Server error codes for a request the server cannot interpret.
const (
	codeBadValue      = 2
	codeFailedToParse = 9
)

// validFieldPath rejects sort keys the server refuses: operators, empty path
// segments and NUL bytes.
func validFieldPath(field string) bool {
	if field == "" || strings.ContainsRune(field, 0) {
		return false
	}
	for _, part := range strings.Split(field, ".") {
		if part == "" || strings.HasPrefix(part, "$") {
			return false
		}
	}
	return true
}

func sortError(key *domain.SortKey, reason string) error {
	raw := key.Field
	if key.Desc {
		raw = "-" + raw
	}
	return &domain.FilterError{Param: "sort", Value: raw, Reason: reason}
}

// buildQuery compiles the conjunction of all present constraints.
func buildQuery(spec domain.FilterSpec) bson.M {
	query := bson.M{}
	if len(spec.Tags) > 0 {
		query[fieldTags] = bson.M{"$in": spec.Tags}
	}
	if spec.ForSale != nil {
		query[fieldForSale] = *spec.ForSale
	}
	if spec.NamePrefix != nil {
		query[fieldName] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(*spec.NamePrefix), Options: "i"}
	}
	if p := spec.Price; p != nil {
		switch {
		case p.IsExact():
			query[fieldPrice] = *p.Min
		case p.Min != nil || p.Max != nil:
			bounds := bson.M{}
			if p.Min != nil {
				bounds["$gte"] = *p.Min
			}
			if p.Max != nil {
				bounds["$lte"] = *p.Max
			}
			query[fieldPrice] = bounds
		}
	}
	return query
}

// buildFindOptions sorts by the requested field with _id (insertion order) as
// the tie-breaker, then applies skip and limit.
func buildFindOptions(spec domain.FilterSpec) *options.FindOptions {
	sort := bson.D{}
	if spec.Sort != nil {
		field := spec.Sort.Field
		if canonical, ok := domain.CanonicalField(field); ok {
			field = documentFields[canonical]
		}
		dir := 1
		if spec.Sort.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	if len(sort) == 0 || sort[0].Key != fieldID {
		sort = append(sort, bson.E{Key: fieldID, Value: 1})
	}

	opts := options.Find().SetSort(sort)
	if spec.Offset != nil {
		opts.SetSkip(int64(*spec.Offset))
	}
	if spec.Limit != nil {
		opts.SetLimit(int64(*spec.Limit))
	}
	return opts
}
