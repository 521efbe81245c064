package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"google.golang.org/api/option"

	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/kitchen"
	"meal-planner/internal/metrics"
	"meal-planner/internal/ocr"
	"meal-planner/internal/recipe"
	"meal-planner/internal/scraper"
	"meal-planner/internal/share"
	"meal-planner/internal/storage"
)

// Stack is a fully wired App together with the infrastructure the
// front-ends need alongside it.
type Stack struct {
	App     *App
	DB      *database.DB
	Metrics *metrics.Store
	// Nil when SHARE_SECRET is not set.
	Signer *share.Signer
	// Nil when the kitchen is not configured.
	Firestore *kitchen.FirestoreStore

	closers []func() error
}

// Bootstrap opens the database and creates every collaborator selected by cfg.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Stack, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	st := &Stack{DB: db, Metrics: metrics.NewStore(db.SQL)}
	st.closers = append(st.closers, db.Close)

	deps := Deps{
		Reporter: st.Metrics,
		Timeout:  cfg.ExternalTimeout,
	}

	switch cfg.StorageBackend {
	case config.StorageFile:
		snapshots, err := storage.NewSnapshotStore(cfg.SnapshotDir)
		if err != nil {
			st.Close()
			return nil, err
		}
		deps.Persistence = snapshots
		deps.Archive = storage.NewRecipeArchive(snapshots)
	default:
		deps.Persistence = NewSQLPersistence(db.SQL)
		deps.Archive = recipe.NewRepository(db.SQL)
	}

	httpClient := &http.Client{Timeout: cfg.ExternalTimeout}

	switch {
	case !cfg.OCREnabled():
		log.Printf("Warning: no API key for OCR provider %q, photo capture is disabled", cfg.OCRProvider)
	case cfg.OCRProvider == config.OCRGemini:
		g, err := ocr.NewGeminiRecognizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, st.Metrics)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, g.Close)
		deps.Recognizer = g
	default:
		deps.Recognizer = ocr.NewSpaceClient(cfg.OCRSpaceAPIKey,
			ocr.WithEndpoint(cfg.OCRSpaceURL),
			ocr.WithLanguage(cfg.OCRLanguage),
			ocr.WithHTTPClient(httpClient),
			ocr.WithRecorder(st.Metrics),
		)
	}

	page := scraper.NewPageScraper(httpClient, st.Metrics)
	if cfg.ScraperURL != "" {
		deps.Scraper = scraper.Fallback{scraper.NewServiceClient(cfg.ScraperURL, httpClient, st.Metrics), page}
	} else {
		deps.Scraper = page
	}

	if cfg.KitchenEnabled() {
		fs, err := kitchen.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCollection, st.Metrics,
			option.WithAPIKey(cfg.FirestoreAPIKey))
		if err != nil {
			st.Close()
			return nil, err
		}
		st.Firestore = fs
		deps.Kitchen = kitchen.NewCatalog(fs, cfg.KitchenCacheTTL)
	}

	if cfg.ShareSecret != "" {
		if st.Signer, err = share.NewSigner(cfg.ShareSecret, cfg.ShareTTL, cfg.PublicURL); err != nil {
			st.Close()
			return nil, err
		}
	}

	if st.App, err = NewApp(deps); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Close releases the clients and the database in reverse order of creation.
func (st *Stack) Close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			log.Printf("Warning: failed to close resource: %v", err)
		}
	}
	st.closers = nil
}
