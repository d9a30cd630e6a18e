package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/resumekit/internal/auth"
	"github.com/hitoshi/resumekit/internal/catalog"
	"github.com/hitoshi/resumekit/internal/config"
	"github.com/hitoshi/resumekit/internal/database"
	"github.com/hitoshi/resumekit/internal/handler"
	"github.com/hitoshi/resumekit/internal/logger"
	"github.com/hitoshi/resumekit/internal/metrics"
	"github.com/hitoshi/resumekit/internal/middleware"
	"github.com/hitoshi/resumekit/internal/repository"
	"github.com/hitoshi/resumekit/internal/resume"
	"github.com/hitoshi/resumekit/internal/security"
	"github.com/hitoshi/resumekit/internal/session"
	"github.com/hitoshi/resumekit/internal/user"
	"github.com/hitoshi/resumekit/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envは開発用。既に設定済みの環境変数は上書きしない
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	var migrateAction MigrateAction
	if cmd == CommandMigrate {
		if migrateAction, err = ParseMigrateAction(args[1:]); err != nil {
			return err
		}
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("store", cfg.StoreDriver),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, migrateAction)
	default:
		return runServe(cfg)
	}
}

// stores はストアドライバに応じて構築したリポジトリ群。
type stores struct {
	identities repository.IdentityStore
	resumes    repository.ResumeStore
	templates  repository.TemplateStore
	health     handler.HealthChecker
	close      func(ctx context.Context) error
}

// openStores はSTORE_DRIVERに応じてPostgreSQLまたはMongoDBに接続し、リポジトリを構築する。
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		store := database.NewMongoStore(cfg.MongoURI, cfg.MongoDatabase, repository.MongoBootstraps()...)
		if err := store.PingContext(ctx); err != nil {
			return nil, abandonStore(ctx, store.Close, fmt.Errorf("failed to connect to mongodb: %w", err))
		}
		slog.Info("mongodb connection established", slog.String("database", cfg.MongoDatabase))

		return &stores{
			identities: repository.NewMongoIdentityRepo(store),
			resumes:    repository.NewMongoResumeRepo(store),
			templates:  repository.NewMongoTemplateRepo(store),
			health:     store,
			close:      store.Close,
		}, nil

	default:
		db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, abandonStore(ctx, closeSQL(db), fmt.Errorf("failed to connect to database: %w", err))
		}
		slog.Info("database connection established")

		return &stores{
			identities: repository.NewPostgresIdentityRepo(db),
			resumes:    repository.NewPostgresResumeRepo(db),
			templates:  repository.NewPostgresTemplateRepo(db),
			health:     db,
			close:      closeSQL(db),
		}, nil
	}
}

// abandonStore は接続確認に失敗したストアを閉じる。
// 閉じる際のエラーは原因のエラーに連結して返す。
func abandonStore(ctx context.Context, closeFn func(context.Context) error, cause error) error {
	if err := closeFn(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to close store: %w", err))
	}
	return cause
}

func closeSQL(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}

// newSessionCodec は設定からセッショントークンのCodecを生成する。
func newSessionCodec(cfg *config.Config) (*session.Codec, error) {
	codec, err := session.NewCodec(session.CodecConfig{
		SigningKey: cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session codec: %w", err)
	}
	return codec, nil
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 1. ストア接続とリポジトリの初期化
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	// 2. セッショントークンとメトリクス
	codec, err := newSessionCodec(cfg)
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. ドメインサービスの初期化
	var oauthProvider auth.OAuthProvider
	if cfg.GoogleEnabled() {
		oauthProvider = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	} else {
		slog.Warn("google sign in is disabled: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required")
	}

	sanitizer := security.NewContentSanitizer()
	authService := auth.NewService(
		st.identities, security.NewDefaultPasswordHasher(), codec, oauthProvider, collector,
		auth.ServiceConfig{SessionTTL: cfg.SessionMaxAge},
	)
	userService := user.NewService(st.identities, sanitizer)
	resumeService := resume.NewService(st.resumes, st.templates, sanitizer, collector)
	templateService := catalog.NewService(st.templates)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSignIn),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionDecoder:    codec,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:     rateLimiter,
		Metrics:         collector,
		MetricsGatherer: registry,
		HealthChecker:   st.health,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		UserService:     userService,
		ResumeService:   resumeService,
		TemplateService: templateService,
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// ストアに接続し、論理削除したレジュメのクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer connectCancel()

	st, err := openStores(connectCtx, cfg)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	collector := metrics.NewCollector(prometheus.NewRegistry())
	cleanupJob := cleanup.NewCleanupJob(st.resumes, slog.Default(), collector)
	cleanupJob.Retention = cfg.ResumeRetention

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はストアのスキーマを準備する。
// MongoDBはスキーマレスのため、初回接続時のブートストラップ（インデックス作成・テンプレート投入）のみ行う。
func runMigrate(cfg *config.Config, action MigrateAction) error {
	if cfg.StoreDriver == config.StoreDriverMongo {
		if action.Direction != MigrateUp {
			return fmt.Errorf("migrate %s is not supported for STORE_DRIVER=%s", action.Direction, cfg.StoreDriver)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store := database.NewMongoStore(cfg.MongoURI, cfg.MongoDatabase, repository.MongoBootstraps()...)
		defer store.Close(context.Background())

		if _, err := store.Database(ctx); err != nil {
			return fmt.Errorf("mongodb bootstrap failed: %w", err)
		}
		slog.Info("mongodb indexes and templates are ready")
		return nil
	}

	dbURL := slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL))

	switch action.Direction {
	case MigrateStatus:
		status, err := database.CurrentMigrationStatus(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration status failed: %w", err)
		}
		slog.Info("database migration status", dbURL,
			slog.Uint64("version", uint64(status.Version)),
			slog.Bool("dirty", status.Dirty),
		)
		return nil
	case MigrateDown:
		slog.Warn("rolling back database migrations", dbURL, slog.Int("steps", action.Steps))
		if err := database.RollbackMigrations(cfg.DatabaseURL, action.Steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slog.Info("database rollback completed")
		return nil
	default:
		slog.Info("running database migrations", dbURL)
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
		return nil
	}
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	healthURL := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
// URL形式として解釈できない接続文字列は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	if q := u.Query(); q.Has("password") {
		q.Set("password", "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
