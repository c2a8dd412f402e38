package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/clearview-college/enroll-portal/internal/api/http"
	"github.com/clearview-college/enroll-portal/internal/auth"
	"github.com/clearview-college/enroll-portal/internal/config"
	"github.com/clearview-college/enroll-portal/internal/db"
	"github.com/clearview-college/enroll-portal/internal/docs"
	"github.com/clearview-college/enroll-portal/internal/draft"
	"github.com/clearview-college/enroll-portal/internal/gate"
	"github.com/clearview-college/enroll-portal/internal/lln"
	"github.com/clearview-college/enroll-portal/internal/records"
	"github.com/clearview-college/enroll-portal/internal/wizard"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// --- Record store ---
	var store records.Store
	switch cfg.RecordDriver {
	case "sheet":
		sheet, err := records.OpenSheet(cfg.SheetPath)
		if err != nil {
			log.Fatalf("record workbook: %v", err)
		}
		defer sheet.Close()
		store = sheet
	default:
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		store = records.NewSQLStore(dbh)
	}

	// --- Draft/session store ---
	var drafts draft.Store
	switch cfg.DraftDriver {
	case "redis":
		rs, err := draft.NewRedisStore(ctx, cfg.RedisURL, cfg.DraftTTL)
		if err != nil {
			log.Fatalf("redis draft store: %v", err)
		}
		defer rs.Close()
		drafts = rs
	default:
		drafts = draft.NewMemoryStore(cfg.DraftTTL)
	}

	// --- Documents, bank, validation ---
	ds, err := docs.NewFSStore(cfg.DocsBasePath)
	if err != nil {
		log.Fatalf("document store: %v", err)
	}
	bank, err := lln.LoadBank()
	if err != nil {
		log.Fatalf("question bank: %v", err)
	}
	validator, err := wizard.NewValidator()
	if err != nil {
		log.Fatalf("step schemas: %v", err)
	}

	g := gate.New(store, cfg.AttemptLimit)
	authSvc := auth.NewService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	wizardAPI := &api.WizardAPI{
		Bank:     bank,
		Gate:     g,
		Records:  store,
		Drafts:   drafts,
		Docs:     ds,
		Validate: validator,
	}
	r.Route("/api/enroll", wizardAPI.Mount)

	accounts := []auth.Account{
		{Username: cfg.AdminUser, PassHash: cfg.AdminPassHash, Role: "admin"},
	}
	if cfg.StaffPassHash != "" {
		accounts = append(accounts, auth.Account{
			Username: cfg.StaffUser, PassHash: cfg.StaffPassHash, Role: "staff",
		})
	}
	r.Post("/admin/login", auth.LoginHandler(authSvc, accounts))

	adminAPI := &api.AdminAPI{Gate: g, Records: store, Docs: ds}
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(auth.Middleware(authSvc))
		adminAPI.Mount(ar)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (records=%s, drafts=%s)", cfg.HTTPAddr, cfg.RecordDriver, cfg.DraftDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
