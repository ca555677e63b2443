package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/pkg/auth"
	"github.com/clinicflow/clinicflow/pkg/metrics"
)

type RouterDeps struct {
	Auth         *AuthHandler
	Queue        *QueueHandler
	Appointments *AppointmentHandler
	JWTManager   *auth.JWTManager
	Metrics      *metrics.Collector
}

// NewRouter wires all v1 routes. Clinical endpoints require a valid staff
// token; call-next is doctor-only and removals need a nurse or above. The
// tracking endpoint is public so patients can follow their place in line.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware(deps.Metrics))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	v1 := r.Group("/api/v1")

	v1.POST("/auth/login", deps.Auth.Login)
	v1.POST("/auth/refresh", deps.Auth.Refresh)

	v1.GET("/track/:token", deps.Queue.Track)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(deps.JWTManager))
	{
		authed.POST("/triage/score", deps.Queue.ScoreTriage)
		authed.POST("/triage/estimate-wait", deps.Queue.EstimateWait)

		authed.POST("/checkin", deps.Queue.CheckIn)
		authed.GET("/queue", deps.Queue.Board)
		authed.POST("/queue/recalculate", deps.Queue.Recalculate)
		authed.POST("/queue/call-next", RequireRole(domain.RoleDoctor), deps.Queue.CallNext)
		authed.POST("/queue/:id/transition", deps.Queue.Transition)
		authed.POST("/queue/:id/remove", RequireRole(domain.RoleAdmin, domain.RoleDoctor, domain.RoleNurse), deps.Queue.Remove)

		authed.POST("/appointments", deps.Appointments.Create)
		authed.POST("/appointments/availability", deps.Appointments.CheckAvailability)
		authed.GET("/appointments/upcoming", deps.Appointments.ListUpcoming)
		authed.GET("/patients/:id/appointments", deps.Appointments.ListByPatient)
		authed.GET("/appointments/:id", deps.Appointments.Get)
		authed.PATCH("/appointments/:id", deps.Appointments.Reschedule)
		authed.POST("/appointments/:id/confirm", deps.Appointments.Confirm)
		authed.POST("/appointments/:id/cancel", deps.Appointments.Cancel)
		authed.POST("/appointments/:id/check-in", deps.Appointments.CheckIn)
		authed.POST("/appointments/:id/no-show", deps.Appointments.MarkNoShow)
	}

	return r
}
