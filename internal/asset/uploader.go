package asset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
)

var ErrAssetNotFound = errors.New("asset not found")

// Kind selects the bucket an asset is stored in.
type Kind string

const (
	KindPhoto     Kind = "photo"
	KindSignature Kind = "signature"
)

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
}

// ExtensionFor maps an accepted content type to its file extension.
func ExtensionFor(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := extensions[ct]
	return ext, ok
}

// Bucket is the object store the uploader writes through.
type Bucket interface {
	Put(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, object string) ([]byte, error)
}

type Config struct {
	PublicURL       string
	PhotoBucket     string
	SignatureBucket string
	Timeout         time.Duration
}

// Uploader stores work-order photos and signatures under content-addressed paths.
// Retrying the same bytes rewrites the same object; different bytes never replace
// an object another submission may already reference.
type Uploader struct {
	store  Bucket
	cfg    Config
	logger *slog.Logger
}

func NewUploader(store Bucket, cfg Config, logger *slog.Logger) *Uploader {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Uploader{store: store, cfg: cfg, logger: logger}
}

func (u *Uploader) bucketFor(kind Kind) string {
	if kind == KindSignature {
		return u.cfg.SignatureBucket
	}
	return u.cfg.PhotoBucket
}

// digestLen is the number of hex characters of the sha256 kept in object names.
const digestLen = 12

// ObjectName is the path of a slot's object inside its bucket.
func ObjectName(orderID, slot string, content []byte, ext string) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%s/%s-%s.%s", orderID, slot, hex.EncodeToString(sum[:])[:digestLen], ext)
}

// Validate checks content before anything is uploaded.
func Validate(field string, content []byte, contentType string) *internal.AppError {
	if len(content) == 0 {
		return internal.NewValidationFieldError(field, field+" is empty", internal.ErrCodeInvalidAsset)
	}
	if _, ok := ExtensionFor(contentType); !ok {
		return internal.NewValidationFieldError(field, field+" must be a PNG or JPEG image", internal.ErrCodeInvalidAsset)
	}
	return nil
}

// Store uploads content and returns its public reference.
func (u *Uploader) Store(ctx context.Context, orderID string, kind Kind, slot string, content []byte, contentType string) (string, error) {
	if err := Validate(string(kind)+"_"+slot, content, contentType); err != nil {
		return "", err
	}
	ext, _ := ExtensionFor(contentType)

	bucket := u.bucketFor(kind)
	object := ObjectName(orderID, slot, content, ext)

	ctx, cancel := internal.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	if err := u.store.Put(ctx, bucket, object, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		u.logger.Error("asset upload failed",
			"work_order_id", orderID,
			"bucket", bucket,
			"object", object,
			"error", err)
		return "", internal.NewStorageError("failed to upload "+string(kind), err)
	}

	u.logger.Debug("asset uploaded", "work_order_id", orderID, "bucket", bucket, "object", object, "size", len(content))
	return fmt.Sprintf("%s/%s/%s", u.cfg.PublicURL, bucket, object), nil
}

// Fetch downloads a previously stored reference and returns its bytes and extension.
func (u *Uploader) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	bucket, object, err := u.parseRef(ref)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := internal.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	content, err := u.store.Get(ctx, bucket, object)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return nil, "", ErrAssetNotFound
		}
		return nil, "", internal.NewStorageError("failed to download asset", err)
	}

	ext := object[strings.LastIndex(object, ".")+1:]
	return content, ext, nil
}

func (u *Uploader) parseRef(ref string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(ref, u.cfg.PublicURL+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %s is not served by this store", ErrAssetNotFound, ref)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || object == "" || !strings.Contains(object, ".") {
		return "", "", fmt.Errorf("%w: malformed reference %s", ErrAssetNotFound, ref)
	}
	return bucket, object, nil
}
