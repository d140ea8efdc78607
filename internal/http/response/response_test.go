package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
)

func TestStatusFor(t *testing.T) {
	cases := map[domainagg.ErrorCode]int{
		domainagg.CodeValidation:         http.StatusBadRequest,
		domainagg.CodeNotFound:           http.StatusNotFound,
		domainagg.CodeNotAvailable:       http.StatusNotFound,
		domainagg.CodeForbidden:          http.StatusForbidden,
		domainagg.CodeNotEnrolled:        http.StatusConflict,
		domainagg.CodeConflict:           http.StatusConflict,
		domainagg.CodePreconditionFailed: http.StatusPreconditionFailed,
		domainagg.CodeRetryable:          http.StatusServiceUnavailable,
		domainagg.CodeInvariantViolation: http.StatusInternalServerError,
		domainagg.CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Fatalf("%s: want=%d got=%d", code, want, got)
		}
	}
}

func respond(err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondAggregateError(c, err)
	var env ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRespondAggregateErrorHidesUnpublished(t *testing.T) {
	rec, env := respond(domainagg.NewError(domainagg.CodeNotAvailable, "Catalog.GetCourse", "course not available", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", rec.Code)
	}
	if env.Error.Code != "not_found" || env.Error.Message != "course not found" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestRespondAggregateErrorCarriesFields(t *testing.T) {
	rec, env := respond(domainagg.NewFieldError("op", "invalid input", map[string]string{"title": "required"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	if env.Error.Code != "validation" || env.Error.Fields["title"] != "required" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestRespondAggregateErrorMasksInternal(t *testing.T) {
	rec, env := respond(errors.New("pq: connection refused"))
	if rec.Code != http.StatusInternalServerError || env.Error.Message != "internal error" {
		t.Fatalf("status=%d envelope=%+v", rec.Code, env)
	}
}
