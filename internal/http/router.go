package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/courseflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/courseflow-backend/internal/http/middleware"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

const eventsRoute = "/api/events"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	CourseHandler    *httpH.CourseHandler
	StructureHandler *httpH.StructureHandler
	LearningHandler  *httpH.LearningHandler
	PaymentHandler   *httpH.PaymentHandler
	RealtimeHandler  *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "courseflow-api"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))
	r.Use(httpMW.Metrics(cfg.Metrics, eventsRoute))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")

	// Public routes see drafts only when a staff token is presented.
	public := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			public.Use(cfg.AuthMiddleware.OptionalAuth())
		}

		if cfg.CourseHandler != nil {
			public.GET("/courses", cfg.CourseHandler.ListCourses)
			public.GET("/courses/:id", cfg.CourseHandler.GetCourse)
			public.GET("/courses/:id/structure", cfg.CourseHandler.GetStructure)
		}
		if cfg.StructureHandler != nil {
			public.GET("/items/:id", cfg.StructureHandler.GetContentItem)
		}
	}

	// Gateway callbacks are authenticated by signature, not by token.
	webhooks := api.Group("/payments")
	{
		if cfg.PaymentHandler != nil {
			webhooks.POST("/midtrans/notification", cfg.PaymentHandler.MidtransNotification)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/events", cfg.RealtimeHandler.Stream)
		}

		// Course authoring
		if cfg.CourseHandler != nil {
			protected.POST("/courses", cfg.CourseHandler.CreateCourse)
			protected.PATCH("/courses/:id", cfg.CourseHandler.UpdateCourse)
			protected.POST("/courses/:id/publish", cfg.CourseHandler.PublishCourse)
			protected.POST("/courses/:id/unpublish", cfg.CourseHandler.UnpublishCourse)
			protected.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)
		}

		// Sections and items
		if cfg.StructureHandler != nil {
			protected.POST("/courses/:id/sections", cfg.StructureHandler.AddSection)
			protected.PUT("/courses/:id/sections/order", cfg.StructureHandler.ReorderSections)
			protected.PATCH("/sections/:id", cfg.StructureHandler.RenameSection)
			protected.DELETE("/sections/:id", cfg.StructureHandler.DeleteSection)
			protected.POST("/sections/:id/items", cfg.StructureHandler.AddContentItem)
			protected.PUT("/sections/:id/items/order", cfg.StructureHandler.ReorderContentItems)
			protected.PATCH("/items/:id", cfg.StructureHandler.UpdateContentItem)
			protected.DELETE("/items/:id", cfg.StructureHandler.DeleteContentItem)
		}

		// Enrollment and progress
		if cfg.LearningHandler != nil {
			protected.POST("/courses/:id/enroll", cfg.LearningHandler.Enroll)
			protected.GET("/courses/:id/progress", cfg.LearningHandler.GetProgress)
			protected.POST("/courses/:id/progress/refresh", cfg.LearningHandler.RefreshProgress)
			protected.POST("/items/:id/consume", cfg.LearningHandler.MarkConsumed)
			protected.GET("/me/enrollments", cfg.LearningHandler.ListMyEnrollments)
		}

		// Payments
		if cfg.PaymentHandler != nil {
			protected.POST("/courses/:id/checkout", cfg.PaymentHandler.Checkout)
			protected.POST("/payments/sync/:order_id", cfg.PaymentHandler.Sync)
		}
	}

	return r
}
