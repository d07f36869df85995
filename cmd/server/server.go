package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/config"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/controllers"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/middleware"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/services"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/views"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/migrations"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/templates"
)

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup the Database ---------------
	log.Println("Connecting to database...")
	db, err := models.Open(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	// Test connection
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Database connected successfully")

	// run migrations
	if err = models.MigrateFS(db, migrations.FS, "."); err != nil {
		return err
	}

	// Pooled connection for the upload/analysis services.
	database, err := models.NewDatabase(ctx, models.DefaultDatabaseConfig(cfg.Database.URL))
	if err != nil {
		return err
	}
	defer database.Close()

	// Setup Services ---------------
	userService := models.NewUserService(db)
	sessionService := models.NewSessionService(db)
	sessionService.SessionDuration = cfg.Security.SessionDuration
	uploadService := models.NewUploadService(database.Pool)
	analysisService := models.NewAnalysisService(database.Pool)

	photoService := services.NewPhotoService()

	log.Println("Connecting to object storage...")
	photoStore, err := services.NewPhotoStore(ctx,
		cfg.Storage.Endpoint,
		cfg.Storage.Region,
		cfg.Storage.Bucket,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.UseSSL,
	)
	if err != nil {
		return fmt.Errorf("failed to connect to object storage: %w", err)
	}

	outfitClient := services.NewOutfitClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	// CSRF middleware
	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
	)
	sessionMw := middleware.NewSessionMiddleware(sessionService, userService, cfg.Security.SecureCookies)

	// Setup Controllers ---------------
	homeTpl := views.MustParseFS(templates.FS, "pages/home.gohtml")
	resultTpl := views.MustParseFS(templates.FS, "pages/results.gohtml")
	historyTpl := views.MustParseFS(templates.FS, "pages/history.gohtml")
	dashboardTpl := views.MustParseFS(templates.FS, "pages/dashboard.gohtml")
	signupTpl := views.MustParseFS(templates.FS, "pages/signup.gohtml")
	signinTpl := views.MustParseFS(templates.FS, "pages/signin.gohtml")
	tipsTpl := views.MustParseFS(templates.FS, "pages/tips.gohtml")

	outfitCtrl := controllers.NewOutfitController(
		analysisService,
		uploadService,
		sessionService,
		photoService,
		photoStore,
		outfitClient,
		controllers.NewInflightRegistry(),
		controllers.OutfitTemplates{Home: homeTpl, Result: resultTpl},
	)
	authCtrl := controllers.NewAuthController(
		userService,
		sessionService,
		controllers.AuthTemplates{SignUp: signupTpl, SignIn: signinTpl},
	)
	historyCtrl := controllers.NewHistoryController(analysisService, historyTpl)
	dashboardCtrl := controllers.NewDashboardController(analysisService, dashboardTpl)
	apiCtrl := controllers.NewApiController(database, outfitClient, uploadService, tipsTpl)

	// Setup router and routes
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(csrfMw)

	// ---- Pages ----
	// Every page runs inside a browser session; visitors get one on
	// first contact.
	r.Group(func(r chi.Router) {
		r.Use(sessionMw.EnsureSession)

		// Upload and analysis
		r.Get("/", outfitCtrl.GetHome)
		r.Post("/uploads", outfitCtrl.PostUpload)
		r.Get("/uploads/preview", outfitCtrl.GetPreview)
		r.Post("/uploads/clear", outfitCtrl.PostClearUpload)
		r.Post("/analyze", outfitCtrl.PostAnalyze)
		r.Get("/analysis/{uuid}", outfitCtrl.GetAnalysis)
		r.Post("/analysis/{uuid}/suggest", outfitCtrl.PostSuggest)
		r.Post("/analysis/{uuid}/delete", outfitCtrl.PostDelete)
		r.Get("/history", historyCtrl.GetHistory)
		r.Get("/tips/{occasion}", apiCtrl.GetTips)

		// Authentication routes
		r.Group(func(r chi.Router) {
			r.Use(sessionMw.RequireNoUser)

			r.Get("/signup", authCtrl.GetSignUp)
			r.Post("/signup", authCtrl.PostSignUp)
			r.Get("/signin", authCtrl.GetSignIn)
			r.Post("/signin", authCtrl.PostSignIn)
		})
		r.Post("/logout", authCtrl.PostLogout)

		// ---- Protected Routes ----
		r.Group(func(r chi.Router) {
			r.Use(sessionMw.RequireUser)

			r.Get("/dashboard", dashboardCtrl.GetDashboard)
		})
	})

	// ---- JSON API ----
	// No session here; health probes should not create session rows.
	r.Get("/healthz", apiCtrl.GetHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/info", apiCtrl.GetInfo)
		r.Get("/occasions", apiCtrl.GetOccasions)
		r.Get("/classes", apiCtrl.GetClasses)
		r.Get("/tips/{occasion}", apiCtrl.GetTipsJSON)
	})

	// Background sweep for expired sessions and abandoned uploads.
	go runCleanup(ctx, cfg.Cleanup, sessionService, analysisService, uploadService, photoStore)

	// Start the Server
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		// The analyze handler waits on the backend, so responses can
		// take as long as the backend timeout allows.
		WriteTimeout: cfg.Backend.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on port %s...\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runCleanup periodically removes expired sessions, analyses that no
// longer have an owner, and uploaded photos nothing references anymore.
// Order matters: expiring sessions is what orphans analyses and
// uploads, so those sweeps run after.
func runCleanup(
	ctx context.Context,
	cfg config.CleanupConfig,
	sessions *models.SessionService,
	analyses *models.AnalysisService,
	uploads *models.UploadService,
	store *services.PhotoStore,
) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := sessions.DeleteExpired(ctx); err != nil {
			log.Printf("cleanup: delete expired sessions: %v", err)
		} else if n > 0 {
			log.Printf("cleanup: removed %d expired sessions", n)
		}

		if n, err := analyses.DeleteOrphaned(ctx); err != nil {
			log.Printf("cleanup: delete orphaned analyses: %v", err)
		} else if n > 0 {
			log.Printf("cleanup: removed %d orphaned analyses", n)
		}

		stale, err := uploads.Stale(ctx, cfg.MaxUploadAge)
		if err != nil {
			log.Printf("cleanup: list stale uploads: %v", err)
			continue
		}
		removed := 0
		for _, up := range stale {
			if err := store.Remove(ctx, up.ObjectKey); err != nil {
				log.Printf("cleanup: remove object %s: %v", up.ObjectKey, err)
				continue
			}
			if err := uploads.Delete(ctx, up.ID); err != nil {
				log.Printf("cleanup: delete upload %d: %v", up.ID, err)
				continue
			}
			removed++
		}
		if removed > 0 {
			log.Printf("cleanup: removed %d stale uploads", removed)
		}
	}
}
