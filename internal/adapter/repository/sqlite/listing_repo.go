package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"go.uber.org/zap"
)

type ListingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewListingRepository(db *sql.DB, logger *zap.Logger) *ListingRepository {
	return &ListingRepository{db: db, logger: logger}
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin create", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO listings (name, name_fold, price, for_sale, photo, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		listing.Name, foldName(listing.Name), listing.Price, boolToInt(listing.ForSale), nullString(listing.Photo),
		listing.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storeErr("insert listing", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("read listing id", err)
	}

	for i, tag := range listing.Tags {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO listing_tags (listing_id, position, tag) VALUES (?, ?, ?)`, id, i, tag,
		); err != nil {
			return storeErr("insert listing tag", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return storeErr("commit create", err)
	}

	listing.ID = strconv.FormatInt(id, 10)
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}

	row := r.db.QueryRowContext(ctx, selectListings+` WHERE l.id = ?`, n)
	listing, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, storeErr("find listing "+id, err)
	}

	if err := r.attachTags(ctx, []*domain.Listing{listing}); err != nil {
		return nil, err
	}
	return listing, nil
}

func (r *ListingRepository) FindByFilter(ctx context.Context, spec domain.FilterSpec) ([]*domain.Listing, error) {
	query, args := buildSelect(spec)
	r.logger.Debug("Finding listings", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("find listings", err)
	}
	listings := []*domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			_ = rows.Close()
			return nil, storeErr("scan listing", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, storeErr("iterate listings", err)
	}
	_ = rows.Close()

	if err := r.attachTags(ctx, listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// attachTags loads tags for all listings in one query, keeping the order they
// were created with.
func (r *ListingRepository) attachTags(ctx context.Context, listings []*domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Listing, len(listings))
	args := make([]any, 0, len(listings))
	for _, l := range listings {
		l.Tags = []string{}
		byID[l.ID] = l
		args = append(args, l.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := r.db.QueryContext(ctx,
		`SELECT listing_id, tag FROM listing_tags WHERE listing_id IN (`+placeholders+`) ORDER BY listing_id, position`,
		args...,
	)
	if err != nil {
		return storeErr("load listing tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return storeErr("scan listing tag", err)
		}
		if l, ok := byID[strconv.FormatInt(id, 10)]; ok {
			l.Tags = append(l.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return storeErr("iterate listing tags", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (*domain.Listing, error) {
	var (
		id        int64
		l         domain.Listing
		forSale   int
		photo     sql.NullString
		createdAt string
	)
	if err := s.Scan(&id, &l.Name, &l.Price, &forSale, &photo, &createdAt); err != nil {
		return nil, err
	}
	l.ID = strconv.FormatInt(id, 10)
	l.ForSale = forSale != 0
	if photo.Valid {
		p := photo.String
		l.Photo = &p
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	l.CreatedAt = t
	return &l, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
