package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-card-ledger/internal/app/tracker/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/go-card-ledger/internal/app/tracker/adapter/in/http"
	local_adapter "github.com/JoeShih716/go-card-ledger/internal/app/tracker/adapter/out/local"
	rdb_adapter "github.com/JoeShih716/go-card-ledger/internal/app/tracker/adapter/out/rdb"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
	"github.com/JoeShih716/go-card-ledger/internal/config"
	"github.com/JoeShih716/go-card-ledger/pkg/database"
	"github.com/JoeShih716/go-card-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化儲存層
	var persistence usecase.Persistence
	var source usecase.SnapshotSource
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.WALPath), 0o755); err != nil {
			log.Fatalf("Failed to create data dir: %v", err)
		}
		walFile, err := wal.Open(cfg.Storage.WALPath)
		if err != nil {
			log.Fatalf("Failed to open WAL: %v", err)
		}
		defer walFile.Close()

		localLedger, err := local_adapter.NewLedger(walFile, local_adapter.WithCompactThreshold(cfg.Storage.CompactThreshold))
		if err != nil {
			log.Fatalf("Failed to recover from WAL: %v", err)
		}
		persistence = localLedger
		log.Printf("Using local storage %s", cfg.Storage.WALPath)
	case config.StorageRemote:
		dbClient, err := database.NewClient(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer dbClient.Close()

		remoteLedger, err := rdb_adapter.NewLedger(dbClient, cfg.Storage.PollInterval)
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		persistence = remoteLedger
		source = remoteLedger
		log.Printf("Using remote storage (%s %s)", cfg.Database.Driver, cfg.Database.Host)
	}

	// 3. 載入帳本
	store, err := usecase.Open(ctx, persistence)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	log.Printf("Loaded %d cards, %d transactions", len(store.Cards()), len(store.Transactions()))

	if source != nil {
		go func() {
			if err := store.Follow(ctx, source); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Snapshot follower stopped: %v", err)
			}
		}()
	}

	// 4. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	grpc_adapter.Register(grpcServer, grpc_adapter.NewGrpcServer(store))
	go func() {
		log.Printf("Starting gRPC server on %s", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("failed to serve grpc: %v", err)
		}
	}()

	// 5. 啟動 HTTP Server
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           http_adapter.NewRouter(store, cfg.Server.AllowOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve http: %v", err)
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	log.Println("Server exited")
}
