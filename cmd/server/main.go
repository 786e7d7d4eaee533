package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suvichaar/storygen/internal/api"
	"github.com/suvichaar/storygen/internal/config"
	"github.com/suvichaar/storygen/internal/httpclient"
	"github.com/suvichaar/storygen/internal/identifier"
	"github.com/suvichaar/storygen/internal/images"
	"github.com/suvichaar/storygen/internal/insights"
	"github.com/suvichaar/storygen/internal/language"
	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/narrative"
	"github.com/suvichaar/storygen/internal/pipeline"
	"github.com/suvichaar/storygen/internal/retry"
	"github.com/suvichaar/storygen/internal/store"
	"github.com/suvichaar/storygen/internal/template"
	"github.com/suvichaar/storygen/internal/voice"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		fatal("postgres connect", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		fatal("postgres migrate", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		fatal("mongo connect", err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		fatal("mongo indexes", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		fatal("redis connect", err)
	}
	defer rdb.Close()
	imageCache := store.NewRedisImageCache(rdb, cfg.ImageCacheTTL, logger)

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.CDNBase, cfg.MinioUseSSL,
	)
	if err != nil {
		fatal("minio connect", err)
	}

	// ── Image fetching ───────────────────────────────────────
	web := httpclient.New("web", "", cfg.HTTPTimeout)
	fetchOpts := []images.FetcherOption{
		images.WithCache(imageCache),
		images.WithLocalFiles(cfg.AllowLocalFiles),
	}
	if cfg.GCSEnabled {
		gcs, err := store.NewGCSReader(ctx)
		if err != nil {
			fatal("gcs client", err)
		}
		defer gcs.Close()
		fetchOpts = append(fetchOpts, images.WithGCS(gcs))
	}
	fetcher := images.NewFetcher(web, minioStore, fetchOpts...)

	// ── Templates ────────────────────────────────────────────
	resolver, err := loadTemplates(cfg, logger)
	if err != nil {
		fatal("templates", err)
	}

	// ── Providers ────────────────────────────────────────────
	policy := retry.DefaultPolicy()

	var narrator narrative.Generator = narrative.MockGenerator{}
	if !config.IsPlaceholder(cfg.OpenAIKey) {
		narrator = narrative.NewModelGenerator(narrative.NewOpenAIChat(cfg.OpenAIKey, cfg.OpenAIModel), policy, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, using mock narrative")
	}

	imageProviders := images.Providers{
		models.SourceDefault: images.DefaultProvider{},
		models.SourceCustom:  images.CustomProvider{},
	}
	if ai := imageClient(ctx, cfg, logger); ai != nil {
		imageProviders[models.SourceAI] = images.NewAIProvider(ai, policy, cfg.Parallelism, logger)
	}
	if !config.IsPlaceholder(cfg.PexelsKey) {
		pexels := httpclient.New("pexels", images.PexelsBaseURL, cfg.HTTPTimeout)
		imageProviders[models.SourcePexels] = images.NewPexelsProvider(pexels, cfg.PexelsKey, cfg.Parallelism)
	}

	var synths []voice.Synthesizer
	if !config.IsPlaceholder(cfg.AzureSpeechKey) {
		azure := httpclient.New("azure-tts", voice.AzureBaseURL(cfg.AzureSpeechRegion), cfg.HTTPTimeout)
		synths = append(synths, voice.NewAzureProvider(azure, cfg.AzureSpeechKey, cfg.AzureVoice))
	}
	if !config.IsPlaceholder(cfg.ElevenLabsKey) {
		eleven := httpclient.New("elevenlabs", voice.ElevenLabsBaseURL, cfg.HTTPTimeout)
		synths = append(synths, voice.NewElevenLabsProvider(eleven, cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID))
	}
	if len(synths) == 0 {
		logger.Warn("no voice provider configured, narration will be skipped")
	}

	voices := voice.NewService(minioStore, cfg.AudioPrefix, cfg.Parallelism, policy, logger, synths...)

	// ── Pipeline ─────────────────────────────────────────────
	orchestrator := pipeline.New(pipeline.Deps{
		Language:    language.NewHeuristicDetector(logger),
		Insights:    insights.NewPipeline(web, minioStore, logger),
		Narrative:   narrator,
		Images:      imageProviders,
		Provisioner: images.NewProvisioner(minioStore, fetcher, cfg.ImagePrefix, cfg.Parallelism, logger),
		Voice:       voices,
		Templates:   resolver,
		Identifiers: identifier.New(cfg.CanonicalBase, nil),
		Records:     []pipeline.RecordStore{mongoStore, pgStore},
		Documents:   minioStore,
	}, pipeline.Options{
		Timeout:           cfg.PipelineTimeout,
		SideEffectTimeout: cfg.SideEffectTimeout,
		HTMLPrefix:        cfg.HTMLPrefix,
		HTMLBase:          cfg.CDNHTMLBase,
	}, logger)

	handler := api.NewHandler(orchestrator, mongoStore, pgStore, minioStore, resolver, voices, cfg.HTMLPrefix, logger)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	handler.Routes(r)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.PipelineTimeout + cfg.SideEffectTimeout + 30*time.Second,
	}

	go func() {
		logger.Info("storygen listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}

// loadTemplates builds the resolver from TEMPLATE_DIR and TEMPLATE_MANIFEST,
// falling back to the embedded layouts.
func loadTemplates(cfg *config.Config, logger *slog.Logger) (*template.Resolver, error) {
	var dir fs.FS = template.Layouts()
	if cfg.TemplateDir != "" {
		dir = os.DirFS(cfg.TemplateDir)
	}

	var (
		manifest *template.Manifest
		err      error
	)
	if cfg.TemplateManifest != "" {
		manifest, err = template.LoadManifestFile(cfg.TemplateManifest)
	} else {
		manifest, err = template.LoadManifest(dir)
	}
	if err != nil {
		return nil, err
	}

	registry, err := template.NewRegistryFromManifest(manifest, template.Generators)
	if err != nil {
		return nil, err
	}
	return template.NewResolver(registry, dir, logger), nil
}

// imageClient picks the AI image backend, or nil when it has no key.
func imageClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) images.ImageClient {
	switch cfg.AIImageBackend {
	case "gemini":
		if config.IsPlaceholder(cfg.GeminiKey) {
			logger.Warn("GEMINI_API_KEY not set, ai images disabled")
			return nil
		}
		client, err := images.NewGeminiImageClient(ctx, cfg.GeminiKey, cfg.GeminiImageModel)
		if err != nil {
			logger.Error("gemini client (non-fatal)", "error", err)
			return nil
		}
		return client
	default:
		if config.IsPlaceholder(cfg.OpenAIKey) {
			logger.Warn("OPENAI_API_KEY not set, ai images disabled")
			return nil
		}
		return images.NewOpenAIImageClient(cfg.OpenAIKey, cfg.OpenAIImageModel)
	}
}
