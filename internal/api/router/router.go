package router

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/cuongbtq/agency-be/internal/api/handler"
	"github.com/cuongbtq/agency-be/internal/telemetry"
)

var registerOnce sync.Once

// registerValidators adds notblank and reports JSON field names in errors
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	registerValidators()

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "agency-api-service",
		})
	})
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	cronHandler := handler.NewCronHandler(deps)
	reassignmentHandler := handler.NewReassignmentHandler(deps)
	notificationHandler := handler.NewNotificationHandler(deps)
	templateHandler := handler.NewTemplateHandler(deps)

	api := r.Group("/api")
	{
		// the cron route carries its own shared secret
		api.GET("/cron/recurring-jobs", cronHandler.RunRecurringJobs)

		authed := api.Group("", AuthMiddleware(deps.Sessions))

		reassignments := authed.Group("/reassignments")
		{
			reassignments.POST("", reassignmentHandler.CreateRequest)
			reassignments.GET("", reassignmentHandler.ListRequests)
			reassignments.POST("/:id/approve", reassignmentHandler.Approve)
			reassignments.POST("/:id/reject", reassignmentHandler.Reject)
		}

		authed.PATCH("/assignments", reassignmentHandler.Reassign)

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
			notifications.PATCH("/:id", notificationHandler.MarkRead)
		}

		templates := authed.Group("/recurring-jobs")
		{
			templates.POST("", templateHandler.Create)
			templates.GET("", templateHandler.List)
			templates.DELETE("/:id", templateHandler.Deactivate)
		}
	}

	return r
}
