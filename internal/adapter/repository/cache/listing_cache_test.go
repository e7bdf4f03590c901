package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*ListingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewListingCache(client, time.Minute), mr
}

func TestListingCache_Listing(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	got, err := c.GetListing(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil")

	photo := "f.png"
	in := &domain.Listing{
		ID:        "abc",
		Name:      "Bicicleta",
		Price:     230.15,
		ForSale:   true,
		Tags:      []string{"lifestyle", "motor"},
		Photo:     &photo,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, c.SetListing(ctx, in))

	got, err = c.GetListing(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	mr.FastForward(2 * time.Minute)
	got, err = c.GetListing(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got, "entry expires after ttl")
}

func TestListingCache_Tags(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	got, err := c.GetTags(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetTags(ctx, nil))
	got, err = c.GetTags(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got, "cached empty list is a hit")
	assert.Empty(t, got)

	require.NoError(t, c.SetTags(ctx, []*domain.Tag{{Name: "work"}, {Name: "mobile"}}))
	got, err = c.GetTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Tag{{Name: "work"}, {Name: "mobile"}}, got)
}

func TestListingCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(listingKeyPrefix+"bad", "{not json"))

	_, err := c.GetListing(context.Background(), "bad")
	assert.Error(t, err)
}

func TestListingCache_ServerDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.GetListing(context.Background(), "abc")
	assert.Error(t, err)
}
