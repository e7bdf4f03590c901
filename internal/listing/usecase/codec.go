package usecase

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"strings"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

type imageCodec struct {
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
	encode func(w io.Writer, img image.Image, jpegQuality int) error
}

var (
	jpegCodec = imageCodec{
		config: jpeg.DecodeConfig,
		decode: jpeg.Decode,
		encode: func(w io.Writer, img image.Image, q int) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
		},
	}
	pngCodec = imageCodec{
		config: png.DecodeConfig,
		decode: png.Decode,
		encode: func(w io.Writer, img image.Image, _ int) error { return png.Encode(w, img) },
	}
	gifCodec = imageCodec{
		config: gif.DecodeConfig,
		decode: gif.Decode,
		encode: func(w io.Writer, img image.Image, _ int) error { return gif.Encode(w, img, nil) },
	}
	bmpCodec = imageCodec{
		config: bmp.DecodeConfig,
		decode: bmp.Decode,
		encode: func(w io.Writer, img image.Image, _ int) error { return bmp.Encode(w, img) },
	}
	tiffCodec = imageCodec{
		config: tiff.DecodeConfig,
		decode: tiff.Decode,
		encode: func(w io.Writer, img image.Image, _ int) error { return tiff.Encode(w, img, nil) },
	}
)

// codecs is keyed by MIME subtype. Images are decoded and re-encoded in the
// declared format so the stored file matches its extension.
var codecs = map[string]imageCodec{
	"jpeg":     jpegCodec,
	"jpg":      jpegCodec,
	"pjpeg":    jpegCodec,
	"png":      pngCodec,
	"gif":      gifCodec,
	"bmp":      bmpCodec,
	"x-ms-bmp": bmpCodec,
	"tiff":     tiffCodec,
}

// ValidateImage accepts a declared content type iff its primary type is
// "image". The bytes themselves are not inspected.
func ValidateImage(declared string) error {
	_, err := imageSubtype(declared)
	return err
}

func imageSubtype(declared string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, declared)
	}
	primary, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || primary != "image" || subtype == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, declared)
	}
	return subtype, nil
}

// scaledHeight is the rounded height of a w x h image resized to width,
// never less than 1.
func scaledHeight(w, h, width int) int64 {
	height := (int64(h)*int64(width) + int64(w)/2) / int64(w)
	if height < 1 {
		height = 1
	}
	return height
}

// scaleToWidth resizes src to exactly width pixels wide keeping the aspect
// ratio. Narrower images are scaled up.
func scaleToWidth(src image.Image, width int) image.Image {
	b := src.Bounds()
	height := int(scaledHeight(b.Dx(), b.Dy(), width))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
