package app

import (
	"context"

	httpapi "github.com/yungbote/courseflow-backend/internal/http"
	httpH "github.com/yungbote/courseflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/courseflow-backend/internal/http/middleware"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/realtime"
)

// NewRouterConfig builds every handler over svc.
func NewRouterConfig(cfg Config, log *logger.Logger, metrics *observability.Metrics, svc Services, hub *realtime.SSEHub, checks map[string]httpH.Pinger) httpapi.RouterConfig {
	log.Info("Wiring handlers...")
	return httpapi.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.Tracing.ServiceName,
		TracingEnabled: cfg.Tracing.Enabled,
		CORSOrigins:    cfg.CORSOrigins,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, httpMW.AuthConfig{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		}),

		HealthHandler: httpH.NewHealthHandler(checks),
		CourseHandler: httpH.NewCourseHandlerWithDeps(httpH.CourseHandlerDeps{
			Log:       log,
			Catalog:   svc.Catalog,
			Structure: svc.Structure,
		}),
		StructureHandler: httpH.NewStructureHandlerWithDeps(httpH.StructureHandlerDeps{
			Log:       log,
			Catalog:   svc.Catalog,
			Structure: svc.Structure,
		}),
		LearningHandler: httpH.NewLearningHandlerWithDeps(httpH.LearningHandlerDeps{
			Log:        log,
			Enrollment: svc.Enrollment,
			Progress:   svc.Progress,
		}),
		PaymentHandler:  httpH.NewPaymentHandler(log, svc.Payment),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
	}
}

type sqlPinger interface {
	PingContext(ctx context.Context) error
}

func pingFunc(p sqlPinger) httpH.PingFunc {
	return func(ctx context.Context) error { return p.PingContext(ctx) }
}
