package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ppenca/penca/handlers"
	"github.com/ppenca/penca/middleware"
	"github.com/ppenca/penca/models"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	groupHandler *handlers.GroupHandler,
	teamHandler *handlers.TeamHandler,
	predictionHandler *handlers.PredictionHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/new", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Всё остальное требует аутентификации.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Put("/auth/update", authHandler.Update)

			r.Get("/teams", teamHandler.List)

			r.Get("/predictions", predictionHandler.Get)
			r.Post("/predictions", predictionHandler.Save)

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupHandler.List)
				r.Post("/", groupHandler.Create)
				r.Get("/{groupID}", groupHandler.Get)
				r.Post("/{groupID}/confirm", groupHandler.ConfirmPassword)
				r.Post("/{groupID}/pay", groupHandler.Pay)
				r.Post("/{groupID}/pay/confirm", groupHandler.ConfirmPayment)

				// Административные операции над группой.
				r.Group(func(r chi.Router) {
					r.Use(middleware.Authorize(models.RoleAdmin))
					r.Post("/{groupID}/finish", groupHandler.Finish)
					r.Post("/{groupID}/logo", groupHandler.UploadLogo)
					r.Put("/{groupID}/members/{memberID}/score", groupHandler.UpdateMemberScore)
				})
			})
		})
	})

	router.Get("/ws/groups/{groupID}", webSocketHandler.ServeWs)

	router.Get("/swagger/*", httpSwagger.Handler())
}
