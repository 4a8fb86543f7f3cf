package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"archive-backend/internal/account"
	googleauth "archive-backend/internal/auth"
	"archive-backend/internal/chat"
	"archive-backend/internal/documents"
	"archive-backend/internal/families"
	"archive-backend/internal/llm"
	openai "archive-backend/internal/llm/openai"
	"archive-backend/internal/queue"
	"archive-backend/internal/services/health"
	"archive-backend/internal/settings"
	"archive-backend/internal/shared/config"
	"archive-backend/internal/shared/server"
	"archive-backend/internal/shared/storage/db"
	"archive-backend/internal/shared/storage/object"
	localstore "archive-backend/internal/shared/storage/object/local"
	s3store "archive-backend/internal/shared/storage/object/s3"
	"archive-backend/internal/usage"
	"archive-backend/internal/users"
)

// App holds shared dependencies for the API server, the worker, and the
// Lambda variants of both.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	DocumentsRepo documents.Repo
	UsersRepo     users.Repo
	FamiliesRepo  families.Repo

	DocumentsService *documents.Service
	SettingsService  *settings.Service
	FamiliesService  *families.Service
	UsersService     *users.Service
	UsageService     *usage.Service
	ChatService      *chat.Service
	AccountService   *account.Service
	IngestProcessor  IngestProcessor

	DocumentsHandler *documents.Handler
	SettingsHandler  *settings.Handler
	FamiliesHandler  *families.Handler
	ChatHandler      *chat.Handler
	UsageHandler     *usage.Handler
	UsersHandler     *users.Handler
	AccountHandler   *account.Handler
	GoogleAuth       *googleauth.GoogleService
}

// IngestProcessor allows callers to override document ingestion for tests.
type IngestProcessor interface {
	ProcessDocument(ctx context.Context, familyID, documentID string) error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		Health:           health.NewService(),
		AccountHandler:   app.AccountHandler,
		ChatHandler:      app.ChatHandler,
		DocumentsHandler: app.DocumentsHandler,
		FamiliesHandler:  app.FamiliesHandler,
		SettingsHandler:  app.SettingsHandler,
		UsageHandler:     app.UsageHandler,
		UsersHandler:     app.UsersHandler,
		GoogleAuth:       app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var docRepo documents.Repo
	var settingsRepo settings.Repo
	var userRepo users.Repo
	var famRepo families.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		settingsRepo = &settings.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		famRepo = &families.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		settingsRepo = settings.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		famRepo = families.NewMemoryRepo()
	}

	llmClient, embedder, err := buildLLM(app.Config)
	if err != nil {
		return err
	}

	settingsSvc := &settings.Service{Repo: settingsRepo}
	docSvc := &documents.Service{
		Store:    app.Store,
		Repo:     docRepo,
		Settings: settingsSvc,
		Embedder: embedder,
		Vision:   describerFor(llmClient),
		Queue:    app.Queue,
	}

	var usageSvc *usage.Service
	if app.DB != nil {
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB))
	} else {
		usageSvc = usage.NewService()
	}

	usersSvc := users.NewService(userRepo)
	familiesSvc := families.NewService(famRepo)

	chatSvc := &chat.Service{
		Repo:        docRepo,
		Docs:        docSvc,
		Settings:    settingsSvc,
		Members:     usersSvc,
		Quota:       usageSvc,
		LLM:         llmClient,
		Embedder:    embedder,
		CallTimeout: chatCallTimeout(),
	}

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		usersSvc,
		familiesSvc,
	)

	app.DocumentsRepo = docRepo
	app.UsersRepo = userRepo
	app.FamiliesRepo = famRepo
	app.DocumentsService = docSvc
	app.SettingsService = settingsSvc
	app.FamiliesService = familiesSvc
	app.UsersService = usersSvc
	app.UsageService = usageSvc
	app.ChatService = chatSvc
	app.AccountService = account.NewService(docRepo, settingsSvc)
	app.IngestProcessor = docSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.SettingsHandler = settings.NewHandler(settingsSvc)
	app.FamiliesHandler = families.NewHandler(familiesSvc, usersSvc)
	app.ChatHandler = chat.NewHandler(chatSvc)
	app.UsageHandler = usage.NewHandler(usageSvc)
	app.UsersHandler = users.NewHandler(usersSvc)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.GoogleAuth = googleAuthSvc

	return nil
}

// buildLLM selects the provider clients. "openai" requires a key; "stub"
// answers deterministically for keyless development; anything else gets
// placeholders that fail loudly when exercised.
func buildLLM(cfg config.Config) (llm.Client, llm.Embedder, error) {
	switch cfg.LLMProvider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		client, err := openai.NewClient(apiKey, cfg.ChatModel)
		if err != nil {
			return nil, nil, err
		}
		embedder, err := openai.NewEmbedder(apiKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return client, embedder, nil
	case "stub":
		return llm.StubClient{}, llm.StubEmbedder{}, nil
	default:
		return llm.PlaceholderClient{}, llm.PlaceholderEmbedder{}, nil
	}
}

// describerFor exposes the provider's vision path when it has one.
func describerFor(client llm.Client) llm.Describer {
	if d, ok := client.(llm.Describer); ok {
		return d
	}
	return nil
}

func chatCallTimeout() time.Duration {
	raw := strings.TrimSpace(os.Getenv("CHAT_CALL_TIMEOUT_SECONDS"))
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
