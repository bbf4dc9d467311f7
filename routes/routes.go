package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mecacaraudio/scoring-engine/handlers"
	"github.com/mecacaraudio/scoring-engine/middleware"
)

const roleAdmin = "admin"

// SetupRoutes wires the public read surface and the JWT-protected admin
// command surface onto the router.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	standingsHandler *handlers.StandingsHandler,
	pointsHandler *handlers.PointsHandler,
	qualificationHandler *handlers.QualificationHandler,
	classMapHandler *handlers.ClassMapHandler,
	resultsHandler *handlers.ResultsHandler,
	archiveHandler *handlers.ArchiveHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticated := func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(roleAdmin))
	}

	router.Route("/standings", func(r chi.Router) {
		r.Get("/{seasonID}/classes/{classID}", standingsHandler.GetClassLeaderboard)
		r.Get("/{seasonID}/teams", standingsHandler.GetTeamLeaderboard)
		r.Get("/{seasonID}/teams/{teamID}", standingsHandler.GetTeamProfile)
		r.Get("/{seasonID}/competitors/{mecaID}", standingsHandler.GetCompetitorStats)

		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Post("/{seasonID}/recompute", standingsHandler.RecomputeStandings)
		})
	})

	router.Get("/teams", standingsHandler.ListTeams)
	router.Get("/seasons/{seasonID}/classes", classMapHandler.ListClasses)

	router.Route("/qualifications", func(r chi.Router) {
		r.Get("/{seasonID}", qualificationHandler.ListBySeason)
		r.Get("/{seasonID}/stats", qualificationHandler.GetStats)
		r.Get("/detail/{qualificationID}", qualificationHandler.GetByID)

		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Post("/{seasonID}/recompute", qualificationHandler.Recompute)
			r.Post("/{seasonID}/check", qualificationHandler.CheckQualification)
			r.Post("/detail/{qualificationID}/notified", qualificationHandler.MarkNotified)
			r.Post("/{seasonID}/invitations/send-all", qualificationHandler.SendAllPendingInvitations)
			r.Post("/{seasonID}/notify", qualificationHandler.NotifyQualified)
			r.Post("/detail/{qualificationID}/invitation", qualificationHandler.SendInvitation)
		})
	})

	router.Post("/invitations/redeem", qualificationHandler.RedeemInvitation)

	router.Route("/events/{eventID}/results", func(r chi.Router) {
		r.Get("/", resultsHandler.ListResults)

		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Post("/", resultsHandler.IngestResults)
		})
	})

	router.Route("/points", func(r chi.Router) {
		r.Get("/seasons/{seasonID}/awards", pointsHandler.ListSeasonAwards)

		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Post("/recompute/events/{eventID}", pointsHandler.RecomputeEvent)
			r.Post("/recompute/groups/{groupID}", pointsHandler.RecomputeGroup)
			r.Post("/recompute/seasons/{seasonID}", pointsHandler.RecomputeSeason)
		})
	})

	router.Route("/classmap", func(r chi.Router) {
		authenticated(r)
		r.Get("/", classMapHandler.ListMappings)
		r.Get("/unmapped", classMapHandler.ListUnmapped)
		r.Post("/", classMapHandler.CreateMapping)
		r.Patch("/{mappingID}", classMapHandler.UpdateMapping)
		r.Delete("/{mappingID}", classMapHandler.DeleteMapping)
	})

	router.Group(func(r chi.Router) {
		authenticated(r)
		r.Post("/seasons/{seasonID}/archive", archiveHandler.ArchiveSeason)
	})

	router.Get("/ws/standings/{seasonID}", webSocketHandler.ServeStandings)
}
