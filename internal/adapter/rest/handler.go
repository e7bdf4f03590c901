package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/nodepop/internal/adapter/rest/middleware"
	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/Abdurahmanit/nodepop/internal/listing/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Multipart field names. The Spanish names are accepted as aliases.
var (
	nameFields    = []string{"name", "nombre"}
	priceFields   = []string{"price", "precio"}
	forSaleFields = []string{"forSale", "venta"}
	tagsFields    = []string{"tags"}
	photoFields   = []string{"photo", "foto"}
)

const multipartMemory = 8 << 20

type ListingService interface {
	Search(ctx context.Context, spec domain.FilterSpec) ([]*domain.Listing, error)
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	Create(ctx context.Context, input usecase.CreateListingInput, photo *string) (*domain.Listing, error)
}

type PhotoService interface {
	IngestOptional(ctx context.Context, upload *usecase.Upload) (*string, error)
}

type ListingHandler struct {
	listings       ListingService
	photos         PhotoService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewListingHandler(listings ListingService, photos PhotoService, maxUploadBytes int64, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{
		listings:       listings,
		photos:         photos,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *ListingHandler) HandleSearchListings(w http.ResponseWriter, r *http.Request) {
	spec, err := usecase.ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	listings, err := h.listings.Search(r.Context(), spec)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if listings == nil {
		listings = []*domain.Listing{}
	}
	writeResult(w, http.StatusOK, listings)
}

func (h *ListingHandler) HandleGetListingByID(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, listing)
}

func (h *ListingHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.listings.ListTags(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	writeResult(w, http.StatusOK, tags)
}

// HandleCreateListing reads a multipart form, stores the optional photo and
// then persists the listing referencing it.
func (h *ListingHandler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return
		}
		writeError(w, h.logger, fmt.Errorf("%w: malformed multipart form: %v", domain.ErrInvalidListingData, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	input, err := parseListingForm(r.MultipartForm)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	upload, err := readUpload(r.MultipartForm)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	photo, err := h.photos.IngestOptional(r.Context(), upload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	listing, err := h.listings.Create(r.Context(), input, photo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		h.logger.Info("Listing created by user", zap.String("listing_id", listing.ID), zap.String("user_id", userID))
	}
	writeResult(w, http.StatusCreated, listing)
}

// isBodyTooLarge reports whether err came from the MaxBytesReader. The
// multipart reader does not always wrap it with %w.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func parseListingForm(form *multipart.Form) (usecase.CreateListingInput, error) {
	var input usecase.CreateListingInput

	input.Name = strings.TrimSpace(formValue(form, nameFields))
	if input.Name == "" {
		return input, fmt.Errorf("%w: name is required", domain.ErrInvalidListingData)
	}

	rawPrice := strings.TrimSpace(formValue(form, priceFields))
	if rawPrice == "" {
		return input, fmt.Errorf("%w: price is required", domain.ErrInvalidListingData)
	}
	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return input, fmt.Errorf("%w: price %q is not a non-negative number", domain.ErrInvalidListingData, rawPrice)
	}
	input.Price = price

	if raw := formValue(form, forSaleFields); strings.TrimSpace(raw) != "" {
		v, ok := usecase.ParseBoolToken(raw)
		if !ok {
			return input, fmt.Errorf("%w: forSale %q is not a boolean", domain.ErrInvalidListingData, raw)
		}
		input.ForSale = v
	}

	for _, field := range tagsFields {
		for _, v := range form.Value[field] {
			input.Tags = append(input.Tags, strings.Split(v, ",")...)
		}
	}
	return input, nil
}

func formValue(form *multipart.Form, names []string) string {
	for _, n := range names {
		if vs := form.Value[n]; len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// readUpload returns nil when the request carries no photo.
func readUpload(form *multipart.Form) (*usecase.Upload, error) {
	var fh *multipart.FileHeader
	for _, n := range photoFields {
		if files := form.File[n]; len(files) > 0 {
			fh = files[0]
			break
		}
	}
	if fh == nil {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", domain.ErrIO, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", domain.ErrIO, err)
	}
	return &usecase.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
