package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/gcp"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

const (
	schemeGCS     = "gs://"
	schemeStorage = "storage://"
)

// ContentURLResolver turns stored media references into fetchable URLs.
// gs://<key> and storage://<key> go through the content bucket; anything else is returned as is.
type ContentURLResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
	// ResolveItem returns a copy of item whose media url is resolved. Text items are returned unchanged.
	ResolveItem(ctx context.Context, item *learning.ContentItem) (*learning.ContentItem, error)
}

type contentURLResolver struct {
	log       *logger.Logger
	bucket    gcp.ContentBucket
	metrics   *observability.Metrics
	signed    bool
	signedTTL time.Duration
}

type ContentURLConfig struct {
	// Signed selects V4 signed urls instead of public ones.
	Signed    bool
	SignedTTL time.Duration
}

func NewContentURLResolver(baseLog *logger.Logger, bucket gcp.ContentBucket, metrics *observability.Metrics, cfg ContentURLConfig) ContentURLResolver {
	return &contentURLResolver{
		log:       baseLog.With("service", "ContentURLResolver"),
		bucket:    bucket,
		metrics:   metrics,
		signed:    cfg.Signed,
		signedTTL: cfg.SignedTTL,
	}
}

func splitStorageRef(ref string) (scheme, key string, ok bool) {
	trimmed := strings.TrimSpace(ref)
	for _, s := range []string{schemeGCS, schemeStorage} {
		if len(trimmed) > len(s) && strings.EqualFold(trimmed[:len(s)], s) {
			return strings.TrimSuffix(s, "://"), strings.TrimLeft(trimmed[len(s):], "/"), true
		}
	}
	return "", "", false
}

func (r *contentURLResolver) Resolve(ctx context.Context, ref string) (string, error) {
	scheme, key, ok := splitStorageRef(ref)
	if !ok {
		r.metrics.IncContentResolved("passthrough", "ok")
		return ref, nil
	}
	if key == "" {
		r.metrics.IncContentResolved(scheme, "error")
		return "", fmt.Errorf("empty storage key in %q", ref)
	}
	if r.bucket == nil {
		r.metrics.IncContentResolved(scheme, "unconfigured")
		return "", fmt.Errorf("content bucket not configured")
	}
	if !r.signed {
		r.metrics.IncContentResolved(scheme, "ok")
		return r.bucket.GetPublicURL(key), nil
	}
	u, err := r.bucket.SignedURL(ctx, key, r.signedTTL)
	if err != nil {
		r.metrics.IncContentResolved(scheme, "error")
		r.log.Warn("sign content url failed", "key", key, "error", err)
		return "", err
	}
	r.metrics.IncContentResolved(scheme, "ok")
	return u, nil
}

func (r *contentURLResolver) ResolveItem(ctx context.Context, item *learning.ContentItem) (*learning.ContentItem, error) {
	if item == nil {
		return nil, nil
	}
	data, err := item.Data()
	if err != nil {
		return nil, err
	}
	ref, ok := learning.MediaURL(data)
	if !ok {
		return item, nil
	}
	resolved, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if resolved == ref {
		return item, nil
	}
	raw, err := json.Marshal(learning.WithMediaURL(data, resolved))
	if err != nil {
		return nil, err
	}
	out := *item
	out.ContentData = datatypes.JSON(raw)
	return &out, nil
}

// passthroughResolver is used when no bucket is configured; storage refs are left untouched.
type passthroughResolver struct{}

func (passthroughResolver) Resolve(_ context.Context, ref string) (string, error) { return ref, nil }

func (passthroughResolver) ResolveItem(_ context.Context, item *learning.ContentItem) (*learning.ContentItem, error) {
	return item, nil
}

func NewPassthroughResolver() ContentURLResolver { return passthroughResolver{} }
