package app

import (
	"time"

	"gorm.io/gorm"

	dataagg "github.com/yungbote/courseflow-backend/internal/data/aggregates"
	"github.com/yungbote/courseflow-backend/internal/data/repos"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/gcp"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/platform/midtrans"
	"github.com/yungbote/courseflow-backend/internal/services"
)

type Services struct {
	Catalog    services.CatalogService
	Structure  services.StructureService
	Enrollment services.EnrollmentService
	Progress   services.ProgressService
	Payment    services.PaymentService
	ContentURL services.ContentURLResolver
}

// ServiceDeps are the collaborators of the service layer. Bucket and Gateway are optional.
type ServiceDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Metrics  *observability.Metrics
	Emitter  services.SSEEmitter
	Bucket   gcp.ContentBucket
	Gateway  midtrans.Gateway
	Storage  StorageConfig
	Currency string
}

func NewServices(deps ServiceDeps) Services {
	log := deps.Log
	log.Info("Wiring services...")

	set := repos.NewSet(deps.DB, log)
	base := dataagg.BaseDeps{
		DB:    deps.DB,
		Log:   log,
		Hooks: dataagg.NewObservabilityHooks(deps.Metrics),
	}

	structAgg := dataagg.NewCourseStructureAggregate(dataagg.CourseStructureAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Sections:    set.Section,
		Items:       set.ContentItem,
		Enrollments: set.Enrollment,
		Consumption: set.Consumption,
		Payments:    set.Payment,
	})
	enrollAgg := dataagg.NewEnrollmentAggregate(dataagg.EnrollmentAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Enrollments: set.Enrollment,
		Payments:    set.Payment,
	})
	progressAgg := dataagg.NewProgressAggregate(dataagg.ProgressAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Sections:    set.Section,
		Items:       set.ContentItem,
		Enrollments: set.Enrollment,
		Consumption: set.Consumption,
	})
	paymentAgg := dataagg.NewPaymentAggregate(dataagg.PaymentAggregateDeps{
		Base:        base,
		Courses:     set.Course,
		Enrollments: set.Enrollment,
		Payments:    set.Payment,
	})

	urls := services.NewPassthroughResolver()
	if deps.Bucket != nil {
		urls = services.NewContentURLResolver(log, deps.Bucket, deps.Metrics, services.ContentURLConfig{
			Signed:    deps.Storage.Signed,
			SignedTTL: time.Duration(deps.Storage.SignedTTLSeconds) * time.Second,
		})
	}

	notify := services.NewLearningNotifier(deps.Emitter, deps.Metrics)
	enrollment := services.NewEnrollmentService(deps.DB, log, enrollAgg, set.Enrollment, notify, deps.Metrics)

	return Services{
		Catalog:    services.NewCatalogService(deps.DB, log, set.Course, set.Section, set.ContentItem, urls, deps.Metrics),
		Structure:  services.NewStructureService(log, structAgg, notify),
		Enrollment: enrollment,
		Progress:   services.NewProgressService(deps.DB, log, progressAgg, set.Enrollment, notify),
		Payment: services.NewPaymentService(services.PaymentServiceDeps{
			DB:       deps.DB,
			Log:      log,
			Gateway:  deps.Gateway,
			Payments: paymentAgg,
			Ledger:   set.Payment,
			Courses:  set.Course,
			Enroll:   enrollment,
			Metrics:  deps.Metrics,
			Currency: deps.Currency,
		}),
		ContentURL: urls,
	}
}
