package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"strings"

	// Registered decoders for the accepted upload formats.
	_ "image/gif"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/storage"
)

const (
	AvatarSize       = 512
	AvatarFormatWebP = "webp"
	AvatarFormatJPEG = "jpeg"

	avatarQuality = 85

	// Decoded size bounds. The byte cap alone does not bound a compressed image.
	maxAvatarSide   = 4096
	maxAvatarPixels = 16_000_000
)

// ErrAvatarTooLarge is returned when an upload exceeds the configured cap.
var ErrAvatarTooLarge = errors.New("avatar exceeds upload limit")

type AvatarService struct {
	store    storage.AvatarStore
	format   string
	maxBytes int64
}

type UploadAvatarInput struct {
	UserID      uint
	Content     []byte
	ContentType string
}

func NewAvatarService(store storage.AvatarStore, format string, maxUploadMB int) *AvatarService {
	if format != AvatarFormatJPEG {
		format = AvatarFormatWebP
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 5
	}
	return &AvatarService{
		store:    store,
		format:   format,
		maxBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// MaxBytes is the upload cap in bytes.
func (s *AvatarService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload normalizes the image to a square avatar and stores it, returning its URL.
func (s *AvatarService) Upload(ctx context.Context, in UploadAvatarInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return "", ErrAvatarTooLarge
	}

	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return "", models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isAllowedImageMIME(provided) {
		return "", models.NewValidationError("Invalid image type")
	}

	header, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return "", models.NewValidationError("Unsupported image format")
	}
	if !withinDecodeBounds(header.Width, header.Height) {
		return "", models.NewValidationError("Image dimensions too large")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	avatar := squareAvatar(decoded, AvatarSize)

	var (
		data        []byte
		ext         string
		contentType string
	)
	switch s.format {
	case AvatarFormatJPEG:
		data, err = encodeJPEG(avatar, avatarQuality)
		ext, contentType = "jpg", "image/jpeg"
	default:
		data, err = encodeWebP(avatar, avatarQuality)
		ext, contentType = "webp", "image/webp"
	}
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("encode avatar: %w", err))
	}

	name := fmt.Sprintf("%d-%s.%s", in.UserID, uuid.NewString(), ext)
	url, err := s.store.Save(ctx, name, contentType, data)
	if err != nil {
		observability.Logger(ctx).Error("avatar store failed", zap.String("object", name), zap.Error(err))
		return "", models.NewInternalError(err)
	}
	return url, nil
}

func withinDecodeBounds(w, h int) bool {
	if w <= 0 || h <= 0 || w > maxAvatarSide || h > maxAvatarSide {
		return false
	}
	return w*h <= maxAvatarPixels
}

// squareAvatar scales the largest centered square of src to size x size in one pass.
func squareAvatar(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x, y, x+side, y+side), xdraw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}
