package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/admin"
	"sheetinsight-backend/internal/analyses"
	"sheetinsight-backend/internal/charts"
	"sheetinsight-backend/internal/files"
	"sheetinsight-backend/internal/history"
	"sheetinsight-backend/internal/insights"
	"sheetinsight-backend/internal/llm"
	"sheetinsight-backend/internal/llm/gemini"
	"sheetinsight-backend/internal/llm/openai"
	"sheetinsight-backend/internal/queue"
	"sheetinsight-backend/internal/services/health"
	"sheetinsight-backend/internal/shared/auth"
	"sheetinsight-backend/internal/shared/config"
	"sheetinsight-backend/internal/shared/metrics"
	"sheetinsight-backend/internal/shared/server"
	"sheetinsight-backend/internal/shared/storage/db"
	"sheetinsight-backend/internal/shared/storage/object"
	localstore "sheetinsight-backend/internal/shared/storage/object/local"
	s3store "sheetinsight-backend/internal/shared/storage/object/s3"
	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/stats"
	"sheetinsight-backend/internal/users"
	"sheetinsight-backend/internal/workerproc"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	LLM    llm.Client
	Tokens *auth.Tokens

	HistoryService  *history.Service
	UsersService    *users.Service
	FilesService    *files.Service
	AnalysesService *analyses.Service
	AdminService    *admin.Service
	HealthService   *health.Service

	localQueue *queue.LocalQueue
}

// Options tweak Build for callers that need something other than the
// environment-derived defaults.
type Options struct {
	// DisableLocalQueue leaves analyses unprocessed unless a queue is
	// configured. Used by binaries that only consume from SQS.
	DisableLocalQueue bool
	// LLM overrides the provider chosen from config.
	LLM llm.Client
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	return BuildWithOptions(context.Background(), cfg, Options{})
}

// BuildWithOptions is Build with explicit options.
func BuildWithOptions(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := opts.LLM
	if client == nil {
		if client, err = buildLLM(ctx, cfg); err != nil {
			return nil, err
		}
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    client,
		Tokens: tokens,
	}
	buildServices(app)

	if err := buildQueue(ctx, app, opts); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Tokens:          tokens,
		Principals:      app.UsersService.LoadPrincipal,
		Health:          app.HealthService,
		UserHandler:     users.NewHandler(app.UsersService),
		FileHandler:     files.NewHandler(app.FilesService, app.AnalysesService.Composer),
		AnalysisHandler: analyses.NewHandler(app.AnalysesService),
		HistoryHandler:  history.NewHandler(app.HistoryService),
		AdminHandler:    admin.NewHandler(app.AdminService),
	})
	return app, nil
}

// ResumePending re-enqueues analyses left processing by a previous run.
func (a *App) ResumePending(ctx context.Context) {
	if a.Queue == nil {
		return
	}
	if _, err := a.AnalysesService.ResumePending(ctx); err != nil {
		telemetry.Error("bootstrap.resume_failed", map[string]any{"error": err.Error()})
	}
}

// Close drains the in-process queue. The shared DB pool is left open for
// Lambda reuse.
func (a *App) Close() {
	if a.localQueue != nil {
		metrics.SetLocalQueueBacklog(nil)
		a.localQueue.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions(db.ProfileLambda)))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions(db.ProfileAPI)))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Error("bootstrap.db_connect_failed", map[string]any{"error": err.Error(), "fallback": "memory"})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.NewClient(cfg.LLMAPIKey, cfg.LLMModel)
	case "gemini":
		return gemini.NewClient(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	default:
		return llm.Disabled{}, nil
	}
}

func buildServices(app *App) {
	var (
		userRepo     users.Repo
		fileRepo     files.Repo
		analysisRepo analyses.Repo
		historyRepo  history.Repo
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		fileRepo = &files.PGRepo{DB: app.DB}
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		historyRepo = &history.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		fileRepo = files.NewMemoryRepo()
		analysisRepo = analyses.NewMemoryRepo()
		historyRepo = history.NewMemoryRepo()
	}

	engine := stats.DefaultEngine()
	if app.Config.StatsOutlierSigma > 0 {
		engine.OutlierSigma = app.Config.StatsOutlierSigma
	}
	if app.Config.StatsTrendRatio > 0 {
		engine.TrendRatio = app.Config.StatsTrendRatio
	}

	hist := history.NewService(historyRepo)
	userSvc := users.NewService(userRepo, app.Tokens, hist)
	fileSvc := &files.Service{
		Store:    app.Store,
		Repo:     fileRepo,
		History:  hist,
		MaxBytes: app.Config.MaxUploadBytes,
		Now:      time.Now,
	}
	analysisSvc := &analyses.Service{
		Repo:     analysisRepo,
		Files:    fileSvc,
		Charts:   charts.NewSynthesizer(),
		Composer: insights.NewComposer(engine, app.LLM),
		History:  hist,
		Now:      time.Now,
	}
	fileSvc.Analyses = analysisSvc

	app.HistoryService = hist
	app.UsersService = userSvc
	app.FilesService = fileSvc
	app.AnalysesService = analysisSvc
	app.AdminService = &admin.Service{
		Users:    userSvc,
		Files:    fileSvc,
		Analyses: analysisSvc,
		History:  hist,
		Now:      time.Now,
	}
	kind := "local"
	if strings.TrimSpace(app.Config.QueueURL) != "" {
		kind = "sqs"
	}
	app.HealthService = health.NewService(app.DB, kind)
}

// buildQueue wires SQS when a queue URL is configured. Otherwise analyses
// run on an in-process worker pool feeding ProcessAnalysis.
func buildQueue(ctx context.Context, app *App, opts Options) error {
	if url := strings.TrimSpace(app.Config.QueueURL); url != "" {
		client, err := queue.NewSQSClient(ctx, app.Config.AWSRegion, url)
		if err != nil {
			return err
		}
		app.Queue = client
		app.AnalysesService.Queue = client
		return nil
	}
	if opts.DisableLocalQueue {
		return nil
	}
	workers := app.Config.WorkerConcurrency
	if workers <= 0 {
		workers = 1
	}
	lq := queue.NewLocalQueue(workers, workerproc.Dispatcher(app.AnalysesService))
	lq.Start()
	metrics.SetLocalQueueBacklog(lq.Pending)
	app.localQueue = lq
	app.Queue = lq
	app.AnalysesService.Queue = lq
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
