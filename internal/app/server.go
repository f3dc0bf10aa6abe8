package app

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Shopvora/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Shopvora/internal/api/middlewares"
	"github.com/markdave123-py/Shopvora/internal/api/respond"
	"github.com/markdave123-py/Shopvora/internal/auth"
	"github.com/markdave123-py/Shopvora/internal/config"
	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/logging"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/services"
	"github.com/markdave123-py/Shopvora/web"
)

const requestTimeout = 60 * time.Second

// Services bundles the data-access layer the routes are served from.
type Services struct {
	Products   *services.ProductService
	Blogs      *services.BlogService
	Contacts   *services.ContactService
	Newsletter *services.NewsletterService
	Users      *services.UserService
	Media      *services.MediaService
}

// NewServices builds the data-access layer. obj and indexer may be nil.
func NewServices(cfg *config.Config, db core.DbClient, obj core.ObjectClient, indexer services.IndexQueue, logger zerolog.Logger) *Services {
	s := &Services{
		Products:   services.NewProductService(db),
		Blogs:      services.NewBlogService(db, indexer, logging.Component(logger, "blogs")),
		Contacts:   services.NewContactService(db),
		Newsletter: services.NewNewsletterService(db),
		Users:      services.NewUserService(db, auth.NewTokens(cfg.JWTSecret), logging.Component(logger, "users")),
	}
	if obj != nil {
		s.Media = services.NewMediaService(obj)
	}
	return s
}

// NewRouter wires every page and API route. emb and llm may be nil when the
// assistant is not configured.
func NewRouter(cfg *config.Config, svc *Services, db core.DbClient, emb core.EmbeddingProvider, llm core.LLMProvider, logger zerolog.Logger) (http.Handler, error) {
	authHandler := handlers.NewAuthHandler(svc.Users, cfg.CookieSecure)
	productHandler := handlers.NewProductHandler(svc.Products)
	blogHandler := handlers.NewBlogHandler(svc.Blogs)
	contactHandler := handlers.NewContactHandler(svc.Contacts, svc.Newsletter)
	uploadHandler := handlers.NewUploadHandler(svc.Media)
	chatHandler := handlers.NewChatHandler(db, emb, llm)
	pages, err := handlers.NewPages(handlers.PageDeps{
		Products:   svc.Products,
		Blogs:      svc.Blogs,
		Contacts:   svc.Contacts,
		Newsletter: svc.Newsletter,
		Users:      svc.Users,
		Auth:       authHandler,
		PublicKey:  cfg.PublicAPIKey,
	})
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(appMiddleware.Session(svc.Users))
	limit := appMiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// The completion stream may outlive the request timeout.
	r.With(appMiddleware.PublicKey(cfg.PublicAPIKey), limit).Post("/functions/v1/smart-task", chatHandler.SmartTask)

	// Pages
	r.Group(func(pg chi.Router) {
		pg.Use(middleware.Timeout(requestTimeout))

		pg.Get("/", pages.Home)
		pg.Get("/about", pages.About)
		pg.Get("/guide", pages.Guide)
		pg.Get("/blog", pages.Blog)
		pg.Get("/blog/{title}", pages.Post)
		pg.Get("/contact", pages.Contact)
		pg.With(limit).Post("/contact", pages.SubmitContact)
		pg.With(limit).Post("/newsletter", pages.Subscribe)
		pg.Get("/login", pages.Login)
		pg.With(limit).Post("/login", pages.SubmitLogin)
		pg.Get("/signup", pages.Signup)
		pg.With(limit).Post("/signup", pages.SubmitSignup)
		pg.Post("/logout", pages.Logout)
		pg.Get("/privacy", pages.Privacy)
		pg.Get("/terms", pages.Terms)

		pg.With(appMiddleware.RequireSession).Get("/profile", pages.Profile)

		pg.Route("/admin", func(admin chi.Router) {
			admin.Use(appMiddleware.RequireRole(models.RoleAdmin))
			admin.Get("/", pages.Admin)
			admin.Post("/products", pages.AdminCreateProduct)
			admin.Post("/products/{id}", pages.AdminUpdateProduct)
			admin.Post("/products/{id}/delete", pages.AdminDeleteProduct)
			admin.Post("/blogs", pages.AdminCreatePost)
			admin.Post("/blogs/{id}", pages.AdminUpdatePost)
			admin.Post("/blogs/{id}/delete", pages.AdminDeletePost)
			admin.Post("/contacts/{id}/delete", pages.AdminDeleteContact)
			admin.Post("/subscribers/{id}/delete", pages.AdminDeleteSubscriber)
		})
	})

	// API routes
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))

		// public endpoints
		api.Get("/products", productHandler.List)
		api.Get("/blogs", blogHandler.List)
		api.Get("/blogs/exists", blogHandler.Exists)
		api.Get("/blogs/{title}", blogHandler.Get)
		api.With(limit).Post("/contact", contactHandler.Submit)
		api.With(limit).Post("/newsletter", contactHandler.Subscribe)
		api.With(limit).Post("/auth/signup", authHandler.Signup)
		api.With(limit).Post("/auth/signin", authHandler.Signin)
		api.Post("/auth/signout", authHandler.Signout)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.RequireSession)
			protected.Get("/auth/me", authHandler.Me)
			protected.Get("/profile", authHandler.Profile)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(appMiddleware.RequireRole(models.RoleAdmin))
			admin.Post("/products", productHandler.Create)
			admin.Put("/products/{id}", productHandler.Update)
			admin.Delete("/products/{id}", productHandler.Delete)
			admin.Post("/blogs", blogHandler.Create)
			admin.Put("/blogs/{id}", blogHandler.Update)
			admin.Delete("/blogs/{id}", blogHandler.Delete)
			admin.Get("/contacts", contactHandler.List)
			admin.Delete("/contacts/{id}", contactHandler.Delete)
			admin.Get("/subscribers", contactHandler.Subscribers)
			admin.Delete("/subscribers/{id}", contactHandler.Unsubscribe)
			admin.Post("/uploads", uploadHandler.Upload)
			admin.Delete("/uploads", uploadHandler.Delete)
		})

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respond.Error(w, http.StatusNotFound, "not found")
		})
	})

	r.NotFound(pages.NotFound)
	return r, nil
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

func NewServer(port string, handler http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
