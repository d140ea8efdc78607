package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

// ContentBucket resolves object keys of course media to fetchable URLs.
type ContentBucket interface {
	GetPublicURL(key string) string
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

type BucketConfig struct {
	Name      string
	CDNDomain string
	// PublicBaseURL overrides https://storage.googleapis.com, e.g. http://localhost:4443 for the emulator.
	PublicBaseURL string
	Credentials   string
	Storage       ObjectStorageConfig
}

type bucketService struct {
	log           *logger.Logger
	client        *storage.Client
	mode          ObjectStorageMode
	emulatorHost  string
	name          string
	cdnDomain     string
	publicBaseURL string
}

func NewContentBucket(ctx context.Context, log *logger.Logger, cfg BucketConfig) (ContentBucket, error) {
	if err := ValidateObjectStorageConfig(cfg.Storage); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("missing content bucket name")
	}
	publicBaseURL, source, err := resolvePublicBaseURL(cfg)
	if err != nil {
		return nil, err
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	serviceLog := log.With("service", "ContentBucket")
	serviceLog.Info("object storage initialized",
		"mode", string(cfg.Storage.Mode),
		"emulator_host", cfg.Storage.EmulatorHost,
		"public_base_source", source,
		"bucket", name,
	)
	return &bucketService{
		log:           serviceLog,
		client:        client,
		mode:          cfg.Storage.Mode,
		emulatorHost:  strings.TrimRight(cfg.Storage.EmulatorHost, "/"),
		name:          name,
		cdnDomain:     strings.TrimSpace(cfg.CDNDomain),
		publicBaseURL: publicBaseURL,
	}, nil
}

func newStorageClient(ctx context.Context, cfg BucketConfig) (*storage.Client, error) {
	if cfg.Storage.IsEmulatorMode() {
		// The storage client only honours the emulator through the environment.
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(cfg.Storage.EmulatorHost, "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptions(cfg.Credentials), option.WithScopes(storage.ScopeReadOnly))
	return storage.NewClient(ctx, opts...)
}

func resolvePublicBaseURL(cfg BucketConfig) (baseURL string, source string, err error) {
	if raw := strings.TrimSpace(cfg.PublicBaseURL); raw != "" {
		parsed, parseErr := url.Parse(raw)
		if parseErr != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", "", fmt.Errorf("invalid public base url %q; expected absolute URL like http://localhost:4443", raw)
		}
		return strings.TrimRight(raw, "/"), "public_base_url", nil
	}
	if cfg.Storage.IsEmulatorMode() {
		return strings.TrimRight(cfg.Storage.EmulatorHost, "/"), "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	if bs.mode == ObjectStorageModeGCSEmulator {
		base := bs.publicBaseURL
		if base == "" {
			base = bs.emulatorHost
		}
		if base != "" {
			return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(bs.name), url.PathEscape(key))
		}
	}
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", bs.publicBaseURL, bs.name, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.name, key)
}

// SignedURL returns a V4 signed GET url. The emulator does not verify
// signatures, so it gets the public media url instead.
func (bs *bucketService) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	if bs.mode == ObjectStorageModeGCSEmulator || bs.client == nil {
		return bs.GetPublicURL(key), nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return bs.client.Bucket(bs.name).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
}

func (bs *bucketService) Exists(ctx context.Context, key string) (bool, error) {
	if bs.client == nil {
		return false, fmt.Errorf("storage client not initialized")
	}
	_, err := bs.client.Bucket(bs.name).Object(strings.TrimLeft(key, "/")).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (bs *bucketService) Close() error {
	if bs == nil || bs.client == nil {
		return nil
	}
	return bs.client.Close()
}
