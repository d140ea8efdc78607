package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	types "github.com/yungbote/courseflow-backend/internal/domain/learning"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, authorID uuid.UUID, price int64, published bool) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Title:       "course",
		Description: "desc",
		Price:       price,
		IsPublished: published,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, index int) *types.Section {
	tb.Helper()
	s := &types.Section{
		ID:         uuid.New(),
		CourseID:   courseID,
		Title:      "section",
		OrderIndex: index,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

func SeedTextItem(tb testing.TB, ctx context.Context, tx *gorm.DB, sectionID uuid.UUID, index int) *types.ContentItem {
	tb.Helper()
	raw, _ := json.Marshal(types.TextContent{Text: "body"})
	it := &types.ContentItem{
		ID:          uuid.New(),
		SectionID:   sectionID,
		Title:       "item",
		ContentType: types.ContentText,
		ContentData: datatypes.JSON(raw),
		OrderIndex:  index,
	}
	if err := tx.WithContext(ctx).Create(it).Error; err != nil {
		tb.Fatalf("seed content item: %v", err)
	}
	return it
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	e := &types.Enrollment{
		ID:        uuid.New(),
		StudentID: studentID,
		CourseID:  courseID,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func SeedPayment(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID, status types.PaymentStatus) *types.Payment {
	tb.Helper()
	p := &types.Payment{
		ID:         uuid.New(),
		StudentID:  studentID,
		CourseID:   courseID,
		Provider:   "midtrans",
		ExternalID: "order-" + uuid.NewString(),
		Amount:     150000,
		Currency:   "IDR",
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed payment: %v", err)
	}
	return p
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }
