package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"meetup-app-go/internal/config"
	"meetup-app-go/internal/transport/httpserver/handler"
	authmw "meetup-app-go/internal/transport/httpserver/middleware"
	"meetup-app-go/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		auth := authmw.NewAuth(cfg.Auth, log)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Post("/gatherings", handlers.CreateGathering)
			r.Get("/gatherings/mine", handlers.ListMyGatherings)
			r.Get("/gatherings/{gathering_id}", handlers.GetGathering)
			r.Delete("/gatherings/{gathering_id}", handlers.DeleteGathering)
			r.Post("/gatherings/{gathering_id}/complete", handlers.CompleteGathering)

			r.Post("/gatherings/{gathering_id}/join", handlers.RequestJoinGathering)
			r.Get("/gatherings/{gathering_id}/membership", handlers.GetMyMembership)
			r.Delete("/gatherings/{gathering_id}/membership", handlers.CancelMembership)
			r.Get("/gatherings/{gathering_id}/members", handlers.ListGatheringMembers)
			r.Post("/gatherings/{gathering_id}/members/{user_id}/approve", handlers.ApproveMembership)
			r.Post("/gatherings/{gathering_id}/members/{user_id}/reject", handlers.RejectMembership)
			r.Post("/gatherings/{gathering_id}/members/{user_id}/kick", handlers.KickMembership)

			r.Post("/gatherings/{gathering_id}/schedules", handlers.CreateSchedule)
			r.Get("/gatherings/{gathering_id}/schedules", handlers.ListSchedules)
			r.Get("/schedules/{schedule_id}", handlers.GetSchedule)
			r.Delete("/schedules/{schedule_id}", handlers.CancelSchedule)
			r.Post("/schedules/{schedule_id}/join", handlers.JoinSchedule)
			r.Delete("/schedules/{schedule_id}/membership", handlers.LeaveSchedule)
			r.Post("/schedules/{schedule_id}/complete", handlers.CompleteSchedule)
			r.Patch("/schedules/{schedule_id}/attendance", handlers.SetAttendance)
			r.Get("/schedules/{schedule_id}/members", handlers.ListScheduleMembers)

			r.Post("/votes", handlers.ToggleVote)
			r.Get("/users/{user_id}/score", handlers.GetScore)
			r.Get("/users/{user_id}/votes", handlers.ListRecentVotes)
			r.Post("/scores/recompute", handlers.RecomputeScores)
		})
	})

	return r
}
