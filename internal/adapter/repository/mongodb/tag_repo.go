package mongodb

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const tagsCollectionName = "tags"

type TagRepository struct {
	collection *mongo.Collection
}

func NewTagRepository(db *mongo.Database) *TagRepository {
	return &TagRepository{collection: db.Collection(tagsCollectionName)}
}

func (r *TagRepository) FindAll(ctx context.Context) ([]*domain.Tag, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find tags: %v", domain.ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var docs []tagDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode tags: %v", domain.ErrStoreUnavailable, err)
	}
	tags := make([]*domain.Tag, 0, len(docs))
	for _, d := range docs {
		tags = append(tags, &domain.Tag{Name: d.Name})
	}
	return tags, nil
}

// Seed upserts names so the tag list is never empty on a fresh database.
func (r *TagRepository) Seed(ctx context.Context, names ...string) error {
	for _, n := range names {
		_, err := r.collection.UpdateOne(ctx,
			bson.M{"name": n},
			bson.M{"$setOnInsert": bson.M{"name": n}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("%w: seed tag %s: %v", domain.ErrStoreUnavailable, n, err)
		}
	}
	return nil
}
