package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func openTestDB(t *testing.T) *ListingRepository {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nodepop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewListingRepository(db, zap.NewNop())
}

func seed(t *testing.T, repo *ListingRepository, listings ...domain.Listing) []*domain.Listing {
	t.Helper()
	created := make([]*domain.Listing, 0, len(listings))
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := range listings {
		l := listings[i]
		l.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(context.Background(), &l))
		created = append(created, &l)
	}
	return created
}

func names(listings []*domain.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Name)
	}
	return out
}

func catalogue() []domain.Listing {
	return []domain.Listing{
		{Name: "iPhone 3GS", Price: 50, ForSale: false, Tags: []string{"lifestyle", "mobile"}},
		{Name: "Ipod nano", Price: 10, ForSale: true, Tags: []string{"mobile"}},
		{Name: "Voip phone", Price: 9, ForSale: true, Tags: []string{"work"}},
		{Name: "Bicicleta", Price: 230.15, ForSale: true, Tags: []string{"lifestyle", "motor"}},
		{Name: "Cartel 100%_off", Price: 51, ForSale: false, Tags: []string{"work"}},
	}
}

func TestCreateAndFindByID(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	l := &domain.Listing{
		Name:      "Bicicleta",
		Price:     230.15,
		ForSale:   true,
		Tags:      []string{"motor", "lifestyle"},
		Photo:     ptr("abc.png"),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, l))
	require.NotEmpty(t, l.ID)

	got, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l, got, "tags keep creation order")

	noPhoto := &domain.Listing{Name: "Sin foto", Price: 1, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, noPhoto))
	got, err = repo.FindByID(ctx, noPhoto.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Photo)
	assert.Empty(t, got.Tags)
}

func TestFindByID_NotFound(t *testing.T) {
	repo := openTestDB(t)
	for _, id := range []string{"999", "not-a-number", ""} {
		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrListingNotFound, "id %q", id)
	}
}

func TestFindByFilter_PriceBoundaries(t *testing.T) {
	repo := openTestDB(t)
	seed(t, repo,
		domain.Listing{Name: "p9", Price: 9},
		domain.Listing{Name: "p10", Price: 10},
		domain.Listing{Name: "p30", Price: 30},
		domain.Listing{Name: "p50", Price: 50},
		domain.Listing{Name: "p51", Price: 51},
	)

	tests := []struct {
		name  string
		price domain.PriceRange
		want  []string
	}{
		{"10-50 inclusive", domain.PriceRange{Min: ptr(10.0), Max: ptr(50.0)}, []string{"p10", "p30", "p50"}},
		{"10- min only", domain.PriceRange{Min: ptr(10.0)}, []string{"p10", "p30", "p50", "p51"}},
		{"-50 max only", domain.PriceRange{Max: ptr(50.0)}, []string{"p9", "p10", "p30", "p50"}},
		{"+50 min only", domain.PriceRange{Min: ptr(50.0)}, []string{"p50", "p51"}},
		{"exact fallback", domain.PriceRange{Min: ptr(30.0), Max: ptr(30.0)}, []string{"p30"}},
		{"exact fallback no match", domain.PriceRange{Min: ptr(31.0), Max: ptr(31.0)}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := tt.price
			got, err := repo.FindByFilter(context.Background(), domain.FilterSpec{Price: &price})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestFindByFilter_NamePrefix(t *testing.T) {
	repo := openTestDB(t)
	seed(t, repo, catalogue()...)

	got, err := repo.FindByFilter(context.Background(), domain.FilterSpec{NamePrefix: ptr("ip")})
	require.NoError(t, err)
	assert.Equal(t, []string{"iPhone 3GS", "Ipod nano"}, names(got))

	// Pattern characters are literal.
	got, err = repo.FindByFilter(context.Background(), domain.FilterSpec{NamePrefix: ptr("cartel 100%_")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cartel 100%_off"}, names(got))

	got, err = repo.FindByFilter(context.Background(), domain.FilterSpec{NamePrefix: ptr("%")})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindByFilter_NamePrefixFoldsNonASCII(t *testing.T) {
	repo := openTestDB(t)
	seed(t, repo,
		domain.Listing{Name: "Ñandú de peluche", Price: 12},
		domain.Listing{Name: "Árbol", Price: 30},
		domain.Listing{Name: "árbitro", Price: 5},
	)

	tests := []struct {
		prefix string
		want   []string
	}{
		{"ñ", []string{"Ñandú de peluche"}},
		{"Ñ", []string{"Ñandú de peluche"}},
		{"ÑANDÚ", []string{"Ñandú de peluche"}},
		{"á", []string{"Árbol", "árbitro"}},
		{"ÁRBO", []string{"Árbol"}},
		{"a", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := repo.FindByFilter(context.Background(), domain.FilterSpec{NamePrefix: ptr(tt.prefix)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestOpen_BackfillsNameFold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`
		CREATE TABLE listings (
		    id         INTEGER PRIMARY KEY AUTOINCREMENT,
		    name       TEXT    NOT NULL,
		    price      REAL    NOT NULL,
		    for_sale   INTEGER NOT NULL,
		    photo      TEXT,
		    created_at TEXT    NOT NULL
		);
		INSERT INTO listings (name, price, for_sale, created_at) VALUES ('Ñandú', 1, 1, '2024-05-01T10:00:00Z');
	`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	got, err := NewListingRepository(db, zap.NewNop()).FindByFilter(context.Background(), domain.FilterSpec{NamePrefix: ptr("ñan")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ñandú"}, names(got))
}

func TestFindByFilter_TagsAndForSale(t *testing.T) {
	repo := openTestDB(t)
	seed(t, repo, catalogue()...)
	ctx := context.Background()

	got, err := repo.FindByFilter(ctx, domain.FilterSpec{Tags: []string{"mobile", "motor"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"iPhone 3GS", "Ipod nano", "Bicicleta"}, names(got))

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Tags: []string{"mobile"}, ForSale: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ipod nano"}, names(got))
	assert.Equal(t, []string{"mobile"}, got[0].Tags)

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Tags: []string{"unknown"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindByFilter_SortAndPaginate(t *testing.T) {
	repo := openTestDB(t)
	seed(t, repo, catalogue()...)
	ctx := context.Background()

	got, err := repo.FindByFilter(ctx, domain.FilterSpec{
		Sort:   &domain.SortKey{Field: "precio"},
		Limit:  ptr(2),
		Offset: ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Voip phone", "Ipod nano"}, names(got))

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Sort: &domain.SortKey{Field: "price", Desc: true}, Offset: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ipod nano", "Voip phone"}, names(got), "offset without limit")

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Limit: ptr(0)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.FindByFilter(ctx, domain.FilterSpec{Sort: &domain.SortKey{Field: "colour"}})
	require.NoError(t, err)
	assert.Equal(t, names(toPtrs(catalogue())), names(got), "unknown sort field keeps insertion order")
}

func TestFindByFilter_TiesKeepInsertionOrder(t *testing.T) {
	repo := openTestDB(t)
	seed(t, repo,
		domain.Listing{Name: "b", Price: 5},
		domain.Listing{Name: "a", Price: 5},
		domain.Listing{Name: "c", Price: 1},
	)
	got, err := repo.FindByFilter(context.Background(), domain.FilterSpec{Sort: &domain.SortKey{Field: "price", Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, names(got))
}

func TestFindByFilter_StoreUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT l.id").WillReturnError(errors.New("disk I/O error"))

	repo := NewListingRepository(db, zap.NewNop())
	_, err = repo.FindByFilter(context.Background(), domain.FilterSpec{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RollsBackOnTagFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO listings").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO listing_tags").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	repo := NewListingRepository(db, zap.NewNop())
	l := &domain.Listing{Name: "x", Tags: []string{"work"}, CreatedAt: time.Now()}
	err = repo.Create(context.Background(), l)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Empty(t, l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func toPtrs(ls []domain.Listing) []*domain.Listing {
	out := make([]*domain.Listing, 0, len(ls))
	for i := range ls {
		out = append(out, &ls[i])
	}
	return out
}
