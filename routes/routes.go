package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/titlescore/titlescore/handlers"
	"github.com/titlescore/titlescore/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Contest    *handlers.ContestHandler
	Member     *handlers.MemberHandler
	Contestant *handlers.ContestantHandler
	Criterion  *handlers.CriterionHandler
	Score      *handlers.ScoreHandler
	Standings  *handlers.StandingsHandler
	Websocket  *handlers.WebsocketHandler
}

func InitRoutes(h Handlers, auth *middleware.Authenticator, allowedOrigin string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Публичный обмен одноразового токена на сессию.
	router.Post("/auth/verify", h.Auth.VerifyHandler)

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/contests", func(r chi.Router) {
			r.Get("/", h.Contest.ListHandler)
			r.Post("/", h.Contest.CreateHandler)

			r.Route("/{contestID}", func(r chi.Router) {
				r.Get("/", h.Contest.GetByIDHandler)
				r.Put("/", h.Contest.UpdateHandler)
				r.Delete("/", h.Contest.DeleteHandler)

				r.Route("/members", func(r chi.Router) {
					r.Get("/", h.Member.ListHandler)
					r.Post("/", h.Member.InviteHandler)
					r.Post("/resend", h.Member.ResendInviteHandler)
					r.Get("/me", h.Member.MeHandler)
					r.Put("/{userID}", h.Member.UpdateRoleHandler)
					r.Delete("/{userID}", h.Member.RemoveHandler)
				})

				r.Route("/contestants", func(r chi.Router) {
					r.Get("/", h.Contestant.ListHandler)
					r.Post("/", h.Contestant.CreateHandler)
				})

				r.Route("/criteria", func(r chi.Router) {
					r.Get("/", h.Criterion.ListHandler)
					r.Post("/", h.Criterion.CreateHandler)
				})

				r.Get("/standings", h.Standings.SummaryHandler)
				r.Post("/export", h.Standings.ExportHandler)
			})
		})

		r.Route("/contestants/{contestantID}", func(r chi.Router) {
			r.Get("/", h.Contestant.GetByIDHandler)
			r.Put("/", h.Contestant.UpdateHandler)
			r.Delete("/", h.Contestant.DeleteHandler)
		})

		r.Route("/criteria/{criteriaID}", func(r chi.Router) {
			r.Get("/", h.Criterion.GetByIDHandler)
			r.Put("/", h.Criterion.UpdateHandler)
			r.Delete("/", h.Criterion.DeleteHandler)
		})

		r.Route("/scores", func(r chi.Router) {
			r.Put("/", h.Score.UpsertHandler)
			r.Post("/{contestantID}/{criteriaID}/submit", h.Score.SubmitHandler)
			r.Get("/{judgeID}/{contestantID}/{criteriaID}", h.Score.GetHandler)
			r.Delete("/{judgeID}/{contestantID}/{criteriaID}", h.Score.DeleteHandler)
		})

		r.Get("/ws/contests/{contestID}", h.Websocket.ServeStandings)
	})

	return router
}
