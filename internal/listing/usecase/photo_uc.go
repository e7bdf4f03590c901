package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/Abdurahmanit/nodepop/internal/platform/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxWidth    = 800
	DefaultMaxHeight   = 4000
	DefaultMaxPixels   = 25_000_000
	DefaultJPEGQuality = 80
)

type PhotoConfig struct {
	MaxWidth int
	// MaxHeight caps the height after resizing to MaxWidth.
	MaxHeight int
	// MaxPixels caps the dimensions a source image may declare.
	MaxPixels   int64
	JPEGQuality int
	// Workers bounds how many uploads are decoded and resized at once.
	Workers int64
}

// Upload is an image as received from the transport layer.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type PhotoUsecase struct {
	storage domain.Storage
	cfg     PhotoConfig
	workers *semaphore.Weighted
	metrics *metrics.Metrics
	logger  *zap.Logger
	newID   func() string
}

func NewPhotoUsecase(storage domain.Storage, cfg PhotoConfig, m *metrics.Metrics, logger *zap.Logger) *PhotoUsecase {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = DefaultMaxHeight
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &PhotoUsecase{
		storage: storage,
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.Workers),
		metrics: m,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// stage results; each stage only runs on the output of the previous one.
type namedUpload struct {
	mimeType string
	subtype  string
	filename string
	data     []byte
}

type renderedImage struct {
	namedUpload
	width   int
	height  int
	encoded []byte
}

// IngestOptional runs Ingest when an upload is present. With no upload it
// returns a nil filename and no error.
func (uc *PhotoUsecase) IngestOptional(ctx context.Context, upload *Upload) (*string, error) {
	if upload == nil {
		return nil, nil
	}
	img, err := uc.Ingest(ctx, upload.Data, upload.ContentType)
	if err != nil {
		return nil, err
	}
	return &img.StoredFilename, nil
}

// Ingest validates, renames, resizes and stores an uploaded image. Any failing
// stage aborts the rest and nothing is written.
func (uc *PhotoUsecase) Ingest(ctx context.Context, data []byte, declared string) (*domain.IngestedImage, error) {
	ctx, span := tracer.Start(ctx, "PhotoUsecase.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("image.declared_type", declared), attribute.Int("image.size_bytes", len(data)))

	named, err := uc.name(data, declared)
	if err != nil {
		return nil, uc.fail(span, "validate", err)
	}
	span.SetAttributes(attribute.String("image.stored_filename", named.filename))

	rendered, err := uc.render(ctx, named)
	if err != nil {
		return nil, uc.fail(span, "decode", err)
	}

	// A cancelled request must not leave a file behind.
	if err := ctx.Err(); err != nil {
		return nil, uc.fail(span, "cancelled", err)
	}
	if err := uc.storage.Write(ctx, rendered.filename, rendered.encoded); err != nil {
		if !errors.Is(err, domain.ErrIO) {
			err = fmt.Errorf("%w: %w", domain.ErrIO, err)
		}
		return nil, uc.fail(span, "write", err)
	}

	uc.metrics.IncImagesIngested()
	uc.logger.Info("Image ingested",
		zap.String("stored_filename", rendered.filename),
		zap.String("mime_type", rendered.mimeType),
		zap.Int("width", rendered.width),
		zap.Int("height", rendered.height),
		zap.Int("size_bytes", len(rendered.encoded)),
	)

	return &domain.IngestedImage{
		OriginalMimeType: rendered.mimeType,
		StoredFilename:   rendered.filename,
		Width:            rendered.width,
		Height:           rendered.height,
		Data:             rendered.encoded,
	}, nil
}

// name validates the declared type and derives the stored filename from a
// random UUID and the declared subtype.
func (uc *PhotoUsecase) name(data []byte, declared string) (namedUpload, error) {
	subtype, err := imageSubtype(declared)
	if err != nil {
		return namedUpload{}, err
	}
	return namedUpload{
		mimeType: "image/" + subtype,
		subtype:  subtype,
		filename: uc.newID() + "." + subtype,
		data:     data,
	}, nil
}

// render decodes, resizes and re-encodes the image. It holds a worker slot
// for the duration of the CPU-bound work.
func (uc *PhotoUsecase) render(ctx context.Context, in namedUpload) (renderedImage, error) {
	codec, ok := codecs[in.subtype]
	if !ok {
		return renderedImage{}, fmt.Errorf("%w: no decoder for %s", domain.ErrDecode, in.mimeType)
	}
	if err := uc.checkDimensions(codec, in); err != nil {
		return renderedImage{}, err
	}

	if err := uc.workers.Acquire(ctx, 1); err != nil {
		return renderedImage{}, err
	}
	defer uc.workers.Release(1)

	src, err := codec.decode(bytes.NewReader(in.data))
	if err != nil {
		return renderedImage{}, fmt.Errorf("%w: %s: %v", domain.ErrDecode, in.mimeType, err)
	}
	if src.Bounds().Dx() <= 0 || src.Bounds().Dy() <= 0 {
		return renderedImage{}, fmt.Errorf("%w: %s: empty image", domain.ErrDecode, in.mimeType)
	}

	var resized image.Image = scaleToWidth(src, uc.cfg.MaxWidth)

	var buf bytes.Buffer
	if err := codec.encode(&buf, resized, uc.cfg.JPEGQuality); err != nil {
		return renderedImage{}, fmt.Errorf("%w: encode %s: %v", domain.ErrDecode, in.mimeType, err)
	}

	return renderedImage{
		namedUpload: in,
		width:       resized.Bounds().Dx(),
		height:      resized.Bounds().Dy(),
		encoded:     buf.Bytes(),
	}, nil
}

// checkDimensions reads only the image header so that oversized sources, or
// narrow ones that would upscale into a huge canvas, are rejected before any
// pixel buffer is allocated.
func (uc *PhotoUsecase) checkDimensions(codec imageCodec, in namedUpload) error {
	cfg, err := codec.config(bytes.NewReader(in.data))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrDecode, in.mimeType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %s: empty image", domain.ErrDecode, in.mimeType)
	}
	if int64(cfg.Width)*int64(cfg.Height) > uc.cfg.MaxPixels {
		return fmt.Errorf("%w: %s: %dx%d exceeds %d pixels", domain.ErrDecode, in.mimeType, cfg.Width, cfg.Height, uc.cfg.MaxPixels)
	}
	if h := scaledHeight(cfg.Width, cfg.Height, uc.cfg.MaxWidth); h > int64(uc.cfg.MaxHeight) {
		return fmt.Errorf("%w: %s: %dx%d resizes to height %d, above %d", domain.ErrDecode, in.mimeType, cfg.Width, cfg.Height, h, uc.cfg.MaxHeight)
	}
	return nil
}

func (uc *PhotoUsecase) fail(span oteltrace.Span, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	uc.metrics.IncIngestFailure(stage)
	if domain.IsUserError(err) {
		uc.logger.Warn("Image rejected", zap.String("stage", stage), zap.Error(err))
	} else {
		uc.logger.Error("Image ingestion failed", zap.String("stage", stage), zap.Error(err))
	}
	return fmt.Errorf("PhotoUsecase.Ingest: %w", err)
}
