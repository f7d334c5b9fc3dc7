package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/urawa-cup/tournament-admin/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	scheduleHandler *handlers.ScheduleHandler,
	teamHandler *handlers.TeamHandler,
	exportHandler *handlers.ExportHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:5174"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/teams", teamHandler.ListTeamsHandler)
		r.Post("/reconcile-bracket", scheduleHandler.ReconcileBracketHandler)

		r.Route("/final-day", func(r chi.Router) {
			r.Get("/", scheduleHandler.GetFinalDayScheduleHandler)
			r.Post("/generate", scheduleHandler.GenerateFinalDayHandler)
			r.Get("/export/csv", exportHandler.ExportCSVHandler)
			r.Get("/print", exportHandler.PrintScheduleHandler)

			// Server-side drag/drop gesture lifecycle.
			r.Route("/editor", func(r chi.Router) {
				r.Post("/drag-start", scheduleHandler.EditorDragStartHandler)
				r.Post("/drag-cancel", scheduleHandler.EditorDragCancelHandler)
				r.Post("/drop", scheduleHandler.EditorDropHandler)
				r.Post("/confirm", scheduleHandler.EditorConfirmHandler)
				r.Post("/cancel", scheduleHandler.EditorCancelHandler)
			})
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Post("/swap-teams", scheduleHandler.SwapTeamsHandler)
		r.Get("/check-played", scheduleHandler.CheckPlayedHandler)
		r.Patch("/{matchID}", scheduleHandler.UpdateMatchDetailHandler)
		r.Patch("/{matchID}/teams", scheduleHandler.UpdateMatchTeamsHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
