//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const testDatabase = "nodepop_test"

var testClient *mongo.Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7.0",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	uri := fmt.Sprintf("mongodb://%s", resource.GetHostPort("27017/tcp"))

	if err := pool.Retry(func() error {
		var errRetry error
		testClient, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return testClient.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}

	code := m.Run()

	_ = testClient.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Fatalf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func newTestRepo(t *testing.T) *ListingRepository {
	t.Helper()
	db := testClient.Database(testDatabase)
	_, err := db.Collection(listingsCollectionName).DeleteMany(context.Background(), bson.M{})
	require.NoError(t, err, "Failed to clear listings collection")

	repo := NewListingRepository(db, zap.NewNop())
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo
}

func seedListings(t *testing.T, repo *ListingRepository, listings ...domain.Listing) {
	t.Helper()
	for i := range listings {
		l := listings[i]
		l.CreatedAt = time.Date(2024, 5, 1, 10, i, 0, 0, time.UTC)
		require.NoError(t, repo.Create(context.Background(), &l))
	}
}

func listingNames(ls []*domain.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

func TestIntegration_CreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	l := &domain.Listing{Name: "Bicicleta", Price: 230.15, ForSale: true, Tags: []string{"motor"}, CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, repo.Create(ctx, l))
	require.NotEmpty(t, l.ID)

	got, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l, got)

	_, err = repo.FindByID(ctx, "000000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
	_, err = repo.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestIntegration_FindByFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedListings(t, repo,
		domain.Listing{Name: "iPhone 3GS", Price: 50, Tags: []string{"mobile"}},
		domain.Listing{Name: "Ipod nano", Price: 10, ForSale: true, Tags: []string{"mobile"}},
		domain.Listing{Name: "Voip phone", Price: 9, ForSale: true, Tags: []string{"work"}},
		domain.Listing{Name: "Moto", Price: 51, ForSale: true, Tags: []string{"motor"}},
	)

	got, err := repo.FindByFilter(ctx, domain.FilterSpec{NamePrefix: ptr("ip")})
	require.NoError(t, err)
	assert.Equal(t, []string{"iPhone 3GS", "Ipod nano"}, listingNames(got))

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Price: &domain.PriceRange{Min: ptr(10.0), Max: ptr(50.0)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"iPhone 3GS", "Ipod nano"}, listingNames(got))

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{
		Sort:   &domain.SortKey{Field: "precio"},
		Limit:  ptr(2),
		Offset: ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Voip phone", "Ipod nano"}, listingNames(got))

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Limit: ptr(0)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Tags: []string{"work", "motor"}, ForSale: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Voip phone", "Moto"}, listingNames(got))
}

func TestIntegration_Tags(t *testing.T) {
	db := testClient.Database(testDatabase)
	repo := NewTagRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx, "work", "mobile", "work"))
	tags, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Tag{{Name: "mobile"}, {Name: "work"}}, tags)
}
