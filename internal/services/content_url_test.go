package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

type fakeBucket struct {
	signErr   error
	signCalls int
	lastTTL   time.Duration
}

func (f *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeBucket) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.signCalls++
	f.lastTTL = ttl
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.test/" + key + "?sig=1", nil
}

func (f *fakeBucket) Exists(context.Context, string) (bool, error) { return true, nil }
func (f *fakeBucket) Close() error                                 { return nil }

func TestResolvePublicAndPassthrough(t *testing.T) {
	r := NewContentURLResolver(logger.Nop(), &fakeBucket{}, nil, ContentURLConfig{})
	cases := map[string]string{
		"gs://videos/intro.mp4":         "https://cdn.test/videos/intro.mp4",
		"storage:///docs/a.pdf":         "https://cdn.test/docs/a.pdf",
		"https://youtube.com/watch?v=1": "https://youtube.com/watch?v=1",
	}
	for in, want := range cases {
		got, err := r.Resolve(context.Background(), in)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Resolve(%q): want=%q got=%q", in, want, got)
		}
	}
	if _, err := r.Resolve(context.Background(), "gs:///"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestResolveSigned(t *testing.T) {
	b := &fakeBucket{}
	r := NewContentURLResolver(logger.Nop(), b, nil, ContentURLConfig{Signed: true, SignedTTL: time.Minute})
	got, err := r.Resolve(context.Background(), "gs://a.png")
	if err != nil || got != "https://signed.test/a.png?sig=1" {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if b.signCalls != 1 || b.lastTTL != time.Minute {
		t.Fatalf("sign calls=%d ttl=%s", b.signCalls, b.lastTTL)
	}

	b.signErr = errors.New("no signer")
	if _, err := r.Resolve(context.Background(), "gs://a.png"); err == nil {
		t.Fatalf("expected sign error to surface")
	}
}

func TestResolveWithoutBucket(t *testing.T) {
	r := NewContentURLResolver(logger.Nop(), nil, nil, ContentURLConfig{})
	if _, err := r.Resolve(context.Background(), "gs://a.png"); err == nil {
		t.Fatalf("expected error without bucket")
	}
}

func TestResolveItem(t *testing.T) {
	r := NewContentURLResolver(logger.Nop(), &fakeBucket{}, nil, ContentURLConfig{})
	item := &learning.ContentItem{
		ID:          uuid.New(),
		ContentType: learning.ContentVideo,
		ContentData: datatypes.JSON(`{"url":"gs://v/1.mp4","description":"intro"}`),
	}
	out, err := r.ResolveItem(context.Background(), item)
	if err != nil {
		t.Fatalf("ResolveItem: %v", err)
	}
	if out == item {
		t.Fatalf("expected a copy")
	}
	var got learning.VideoContent
	if err := json.Unmarshal(out.ContentData, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.URL != "https://cdn.test/v/1.mp4" || got.Description != "intro" {
		t.Fatalf("resolved data: %+v", got)
	}
	if string(item.ContentData) != `{"url":"gs://v/1.mp4","description":"intro"}` {
		t.Fatalf("original item mutated: %s", item.ContentData)
	}

	text := &learning.ContentItem{ContentType: learning.ContentText, ContentData: datatypes.JSON(`{"text":"hi"}`)}
	same, err := r.ResolveItem(context.Background(), text)
	if err != nil || same != text {
		t.Fatalf("text item should pass through: %v", err)
	}
}
