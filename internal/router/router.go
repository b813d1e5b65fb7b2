package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"hiddengems-web/internal/handlers"
	"hiddengems-web/internal/middleware"
	"hiddengems-web/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	authLimiter *middleware.RateLimiter,
	authHandler *handlers.AuthHandler,
	homeHandler *handlers.HomeHandler,
	dashboardHandler *handlers.DashboardHandler,
	profileHandler *handlers.ProfileHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", homeHandler.Health)

	r.Route("/api", func(r chi.Router) {

		// ──── Login page ────
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimiter.Middleware)
				r.Post("/signup", authHandler.Signup)
				r.Post("/login", authHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(sessionAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		// ──── Home page (public) ────
		r.Route("/home", func(r chi.Router) {
			r.Get("/artisans", homeHandler.Artisans)
			r.Get("/artisans/carousel", homeHandler.Carousel)
			r.Get("/artisans/{id}", homeHandler.Artisan)
			r.Get("/artisans/{id}/products", homeHandler.ArtisanProducts)
			r.Get("/events", homeHandler.Events)
		})

		// ──── Dashboard page ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(sessionAuth.Middleware)

			r.Get("/products", dashboardHandler.ListProducts)
			r.Post("/products", dashboardHandler.AddProduct)
			r.Delete("/products/{productID}", dashboardHandler.DeleteProduct)

			r.Post("/marketing", dashboardHandler.Marketing)
			r.Post("/product-description", dashboardHandler.ProductDescription)

			r.Post("/poster", dashboardHandler.GeneratePoster)
			r.Get("/poster", dashboardHandler.DownloadPoster)
			r.Delete("/poster", dashboardHandler.DiscardPoster)

			r.Get("/events", dashboardHandler.Events)

			r.Get("/chat", dashboardHandler.ChatHistory)
			r.Post("/chat", dashboardHandler.Chat)
			r.Delete("/chat", dashboardHandler.ResetChat)
		})

		// ──── Profile page ────
		r.Route("/profile", func(r chi.Router) {
			r.Use(sessionAuth.Middleware)
			r.Get("/", profileHandler.Get)
			r.Post("/", profileHandler.Create)
			r.Patch("/", profileHandler.Update)
			r.Post("/skills", profileHandler.AddSkill)
			r.Delete("/skills/{skill}", profileHandler.RemoveSkill)
			r.Post("/story", profileHandler.GenerateStory)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(sessionAuth.Middleware)
			r.Get("/{id}", jobHandler.GetJob)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
