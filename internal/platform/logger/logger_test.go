package logger

import "testing"

func TestSanitizeKVsRedactsAndHashes(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"signature_key", "abc",
		"student_id", "2b9d4c3e-0000-0000-0000-000000000001",
		"course_id", "c1",
	})
	if len(out) != 6 {
		t.Fatalf("len: want=6 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("signature_key: want=[REDACTED] got=%v", out[1])
	}
	hashed, ok := out[3].(string)
	if !ok || len(hashed) != len("hash:")+12 {
		t.Fatalf("student_id: expected hash, got=%v", out[3])
	}
	if out[5] != "c1" {
		t.Fatalf("course_id should pass through, got=%v", out[5])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"course_id", "c1", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if !looksLikeJWT("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig") {
		t.Fatalf("expected jwt shape to be detected")
	}
	if looksLikeJWT("https://cdn.example.com/video.mp4") {
		t.Fatalf("url should not look like a jwt")
	}
}
