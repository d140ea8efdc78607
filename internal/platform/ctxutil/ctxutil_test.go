package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRequestDataRoundTrip(t *testing.T) {
	if GetRequestData(context.Background()) != nil {
		t.Fatalf("expected nil request data on empty context")
	}
	id := uuid.New()
	ctx := WithRequestData(context.Background(), &RequestData{UserID: id, Role: "staff"})
	rd := GetRequestData(ctx)
	if rd == nil || rd.UserID != id || rd.Role != "staff" {
		t.Fatalf("request data: got=%+v", rd)
	}
}

func TestTraceDataRoundTrip(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t1", RequestID: "r1"})
	td := GetTraceData(ctx)
	if td == nil || td.TraceID != "t1" || td.RequestID != "r1" {
		t.Fatalf("trace data: got=%+v", td)
	}
}

func TestTraceDataLogFields(t *testing.T) {
	var none *TraceData
	if none.LogFields() != nil {
		t.Fatalf("nil trace data should yield no fields")
	}
	got := (&TraceData{RequestID: "r1"}).LogFields()
	if len(got) != 2 || got[0] != "request_id" || got[1] != "r1" {
		t.Fatalf("fields: got=%v", got)
	}
}

func TestDefault(t *testing.T) {
	if Default(nil) == nil {
		t.Fatalf("Default(nil) returned nil")
	}
}
