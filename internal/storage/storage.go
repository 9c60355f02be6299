package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// Object key prefixes per kind of asset.
const (
	PrefixProgress = "progress"
	PrefixLogos    = "logos"
	PrefixProducts = "products"
	PrefixPosts    = "posts"
)

var ErrUnsupportedContentType = errors.New("unsupported content type")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// PublicURL returns the unsigned URL of an object served from the
	// public bucket prefix. Empty when no public base URL is configured.
	PublicURL(objectKey string) string

	DeleteObject(ctx context.Context, objectKey string) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// IsSupportedImage reports whether contentType can be uploaded.
func IsSupportedImage(contentType string) bool {
	_, ok := imageExtensions[strings.ToLower(contentType)]
	return ok
}

// ObjectKey builds a unique key such as
// "progress/<gymId>/<ownerId>/<uuid>.jpg" for an image upload.
func ObjectKey(prefix string, gymID, ownerID primitive.ObjectID, contentType string) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	return path.Join(prefix, gymID.Hex(), ownerID.Hex(), uuid.NewString()+ext), nil
}

// KeyBelongsTo reports whether key was issued by ObjectKey for this
// prefix, gym and owner.
func KeyBelongsTo(key, prefix string, gymID, ownerID primitive.ObjectID) bool {
	return strings.HasPrefix(key, path.Join(prefix, gymID.Hex(), ownerID.Hex())+"/")
}
