package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/kakoGoFramework/internal/config"
	"github.com/nemonet1337/kakoGoFramework/internal/metrics"
	"github.com/nemonet1337/kakoGoFramework/pkg/ledger"
	"github.com/nemonet1337/kakoGoFramework/pkg/ledger/storage"
)

func main() {
	// ログ設定
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定読み込みに失敗しました", zap.Error(err))
	}

	// ストレージ接続
	store, err := openStorage(cfg, logger)
	if err != nil {
		logger.Fatal("ストレージ接続に失敗しました", zap.Error(err))
	}
	defer store.Close()

	// 台帳初期化
	ledgerManager := ledger.NewLedger(store, logger)

	// HTTPハンドラー設定
	handlers := NewHandlers(ledgerManager, store, logger)
	router := setupRouter(handlers, cfg)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("在庫台帳APIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// openStorage opens the storage backend selected by the configuration
// 設定で選択されたストレージバックエンドを開く
func openStorage(cfg *config.Config, logger *zap.Logger) (ledger.Storage, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return storage.NewSQLiteStorage(cfg.Database.SQLitePath, logger)
	default:
		return storage.NewPostgresStorage(cfg.DSN(), logger)
	}
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェックとメトリクス
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if cfg.API.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 仕入
	api.HandleFunc("/purchases", handlers.CreatePurchase).Methods("POST").Name("create_purchase")
	api.HandleFunc("/purchases/receive", handlers.ReceivePurchase).Methods("POST").Name("receive_purchase")
	api.HandleFunc("/purchases/entry", handlers.EditPurchaseEntry).Methods("PUT").Name("edit_purchase_entry")

	// 生産
	api.HandleFunc("/production-runs", handlers.CreateProductionRun).Methods("POST").Name("create_production_run")
	api.HandleFunc("/production-runs/outputs", handlers.EditProductionOutputEntry).Methods("PUT").Name("edit_production_output")
	api.HandleFunc("/production-runs/{runId}/outputs", handlers.AddOutputsToProductionRun).Methods("POST").Name("add_production_outputs")
	api.HandleFunc("/production-runs/{runId}/outputs", handlers.GetRunOutputs).Methods("GET").Name("get_production_outputs")

	// 出荷
	api.HandleFunc("/dispatches", handlers.CreateDispatch).Methods("POST").Name("create_dispatch")

	// ロット照会
	api.HandleFunc("/lots/{lotId}", handlers.GetLot).Methods("GET").Name("get_lot")
	api.HandleFunc("/lots/{lotId}/history", handlers.GetLotHistory).Methods("GET").Name("get_lot_history")
	api.HandleFunc("/warehouses/{warehouseId}/lots", handlers.GetWarehouseLots).Methods("GET").Name("get_warehouse_lots")
	api.HandleFunc("/warehouses/{warehouseId}/capacity", handlers.GetWarehouseCapacity).Methods("GET").Name("get_warehouse_capacity")
	api.HandleFunc("/products/{productId}/lots", handlers.GetProductLots).Methods("GET").Name("get_product_lots")
	api.HandleFunc("/products/{productId}/outputs", handlers.GetOutputProducts).Methods("GET").Name("get_output_products")

	// レポート
	api.HandleFunc("/reports/net-movement", handlers.GetNetMovement).Methods("GET").Name("get_net_movement")

	// マスタ管理
	api.HandleFunc("/products", handlers.CreateProduct).Methods("POST").Name("create_product")
	api.HandleFunc("/warehouses", handlers.CreateWarehouse).Methods("POST").Name("create_warehouse")
	api.HandleFunc("/output-definitions", handlers.CreateOutputDefinition).Methods("POST").Name("create_output_definition")

	// CORS設定（開発用）
	if cfg.API.EnableCORS {
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// ログとメトリクス
	router.Use(loggingMiddleware(handlers.logger))
	router.Use(metricsMiddleware)

	return router
}

// statusRecorder captures the response status code for middleware
// ミドルウェア向けにレスポンスステータスコードを記録
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// リクエスト処理
			next.ServeHTTP(recorder, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", recorder.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// metricsMiddleware records operation counts and latency per named route
// 名前付きルート毎に操作数とレイテンシを記録するミドルウェア
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		operation := "unknown"
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			operation = route.GetName()
		}
		metrics.ObserveRequest(operation, recorder.status, time.Since(start))
	})
}
