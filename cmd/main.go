package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"debtboard/internal/billz"
	"debtboard/internal/clients"
	"debtboard/internal/config"
	"debtboard/internal/repository"
	"debtboard/internal/scheduler"
	"debtboard/internal/service"
	"debtboard/internal/transport/auth"
	"debtboard/internal/transport/rest"
	"debtboard/internal/transport/websocket"
	"debtboard/pkg/database/postgres"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env or defaults")
	}

	// top-level context which we can cancel on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.Billz.SecretToken == "" {
		log.Fatal("BILLZ_SECRET_KEY is required")
	}

	db := mustInitPostgres(cfg.Postgres)
	defer postgres.Close(db)

	redisClient := mustInitRedis(cfg.Redis)
	defer redisClient.Close()

	snapshotStore := mustInitSnapshotStore(ctx, cfg)

	fileStorage, err := clients.NewFileStorage(cfg.ExportDir, cfg.FilesPublicPrefix, cfg.ExternalURL)
	if err != nil {
		log.Fatalf("file storage init error: %v", err)
	}

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	wsClient := clients.NewWebSocketClient(wsHub)

	noteRepo := repository.NewNoteRepository(db)
	userRepo := repository.NewUserRepository(db)

	billzClient := billz.NewClient(cfg.Billz)

	pipelineSvc := service.NewPipelineService(
		billzClient,
		noteRepo,
		snapshotStore,
		redisClient,
		wsClient,
		cfg.Billz.PageLimit,
		cfg.Billz.MaxPages,
	)
	noteSvc := service.NewNoteService(noteRepo)
	userSvc := service.NewUserService(userRepo, cfg.AdminName)
	exportSvc := service.NewExportService(snapshotStore, redisClient, fileStorage, wsClient)

	jwtSecret := []byte(cfg.JWTSecret)
	authMiddleware := auth.Middleware(jwtSecret)

	handler := rest.NewHandler(snapshotStore, pipelineSvc, noteSvc, userSvc, exportSvc, jwtSecret)
	router := handler.InitRouterWithAuth(authMiddleware)

	// protected websocket endpoint; the middleware accepts the token query
	// parameter so browsers can connect without custom headers
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		identity, err := auth.GetIdentity(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		log.Printf("WS connected: user_id=%d", identity.UserID)
		wsHub.HandleWebSocket(w, r, identity.UserID)
	})

	// public root: login, health and export downloads stay open, everything
	// else goes through the protected router
	root := chi.NewRouter()

	root.Post("/api/login", handler.Login)

	root.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	root.Get("/files/{file}", func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		path := filepath.Join(fileStorage.BaseDir, filepath.Base(file))
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "failed to access file", http.StatusInternalServerError)
			return
		}

		// prefer original filename in Content-Disposition (strip random prefix)
		orig := file
		if idx := strings.IndexByte(file, '_'); idx >= 0 {
			orig = file[idx+1:]
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", orig))

		http.ServeFile(w, r, path)
	})

	root.Mount("/", router)

	corsHandler := withCORS(root)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run HTTP server in goroutine so we can listen for shutdown signals
	srvErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	// immediate refresh at start, then every RefreshIntervalMinutes
	refreshScheduler := scheduler.New(time.Duration(cfg.RefreshIntervalMinutes) * time.Minute)
	go refreshScheduler.Start(ctx, func(runCtx context.Context) {
		if _, err := pipelineSvc.Run(runCtx); err != nil {
			log.Printf("scheduled refresh error: %v", err)
		}
	})

	// background cleaner for expired export files
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fileStorage.CleanupOlderThan(30 * time.Minute); err != nil {
					log.Printf("storage cleanup error: %v", err)
				}
			}
		}
	}()

	// Listen for OS shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Shutdown signal received: %v", sig)

		// Give server up to 10 seconds to finish ongoing requests
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server Shutdown error: %v", err)
		}

		// Cancel top-level context so background services stop
		cancel()

		postgres.Close(db)
		redisClient.Close()

		log.Println("Shutdown complete")
	}
}

func mustInitPostgres(cfg config.PostgresConfig) *sql.DB {
	db, err := postgres.NewPostgresConnection(postgres.ConnectionInfo{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
		Password: cfg.Password,
	})
	if err != nil {
		log.Fatalf("postgres init error: %v", err)
	}
	return db
}

func mustInitRedis(cfg config.RedisConfig) *clients.RedisClient {
	client, err := clients.NewRedisClient(clients.RedisConfig{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Prefix:      cfg.Prefix,
	})
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	return client
}

func mustInitSnapshotStore(ctx context.Context, cfg config.AppConfig) service.SnapshotStore {
	switch cfg.SnapshotBackend {
	case "s3":
		store, err := clients.NewS3SnapshotStore(ctx, clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
		})
		if err != nil {
			log.Fatalf("s3 snapshot store init error: %v", err)
		}
		return store
	case "local", "":
		store, err := clients.NewSnapshotStorage(cfg.DataDir)
		if err != nil {
			log.Fatalf("snapshot storage init error: %v", err)
		}
		return store
	default:
		log.Fatalf("unknown snapshot backend %q", cfg.SnapshotBackend)
		return nil
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
