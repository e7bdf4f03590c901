package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/redis/go-redis/v9"
)

const (
	listingKeyPrefix = "nodepop:listing:"
	tagsKey          = "nodepop:tags"
	defaultTTL       = time.Hour
)

// ListingCache keeps listings by id and the tag list in redis as JSON.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ListingCache{client: client, ttl: ttl}
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (c *ListingCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	data, err := c.client.Get(ctx, listingKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var listing domain.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("decode cached listing %s: %w", id, err)
	}
	return &listing, nil
}

func (c *ListingCache) SetListing(ctx context.Context, listing *domain.Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingKeyPrefix+listing.ID, data, c.ttl).Err()
}

func (c *ListingCache) GetTags(ctx context.Context) ([]*domain.Tag, error) {
	data, err := c.client.Get(ctx, tagsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tags := []*domain.Tag{}
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("decode cached tags: %w", err)
	}
	return tags, nil
}

func (c *ListingCache) SetTags(ctx context.Context, tags []*domain.Tag) error {
	if tags == nil {
		tags = []*domain.Tag{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tagsKey, data, c.ttl).Err()
}
