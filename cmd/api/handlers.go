package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/kakoGoFramework/pkg/ledger"
)

// Handlers holds HTTP handlers for the ledger API
// 台帳API用のHTTPハンドラーを保持
type Handlers struct {
	ledger  *ledger.Ledger
	storage ledger.Storage
	logger  *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(l *ledger.Ledger, storage ledger.Storage, logger *zap.Logger) *Handlers {
	return &Handlers{
		ledger:  l,
		storage: storage,
		logger:  logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// errorStatus maps ledger errors to HTTP status codes
// 台帳エラーをHTTPステータスコードにマッピング
func errorStatus(err error) int {
	switch {
	case ledger.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrPurchaseNotFound),
		errors.Is(err, ledger.ErrLotNotFound),
		errors.Is(err, ledger.ErrProductNotFound),
		errors.Is(err, ledger.ErrWarehouseNotFound),
		errors.Is(err, ledger.ErrRunNotFound),
		errors.Is(err, ledger.ErrOutputNotFound),
		errors.Is(err, ledger.ErrDispatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrDuplicateLotNumber),
		errors.Is(err, ledger.ErrInvalidOperation):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientQuantity),
		errors.Is(err, ledger.ErrNegativeQuantity),
		errors.Is(err, ledger.ErrCapacityExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.sendError(w, http.StatusServiceUnavailable, "ストレージに接続できません")
		return
	}

	h.sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "kakoGoFramework",
	})
}

// CreatePurchaseRequest represents request to create a purchase order
// 仕入注文作成リクエストを表現
type CreatePurchaseRequest struct {
	OrganizationID string    `json:"organization_id"`
	SupplierID     *string   `json:"supplier_id"`
	OrderDate      time.Time `json:"order_date"`
}

// CreatePurchase handles purchase order creation
// 仕入注文作成リクエストを処理
func (h *Handlers) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	purchase, err := h.ledger.CreatePurchase(r.Context(), req.OrganizationID, req.SupplierID, req.OrderDate)
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, purchase)
}

// ReceivePurchase handles purchase receiving
// 仕入入荷リクエストを処理
func (h *Handlers) ReceivePurchase(w http.ResponseWriter, r *http.Request) {
	var req ledger.ReceivePurchaseInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	lot, err := h.ledger.ReceivePurchase(r.Context(), req)
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, lot)
}

// EditPurchaseEntry handles purchase entry corrections
// 仕入エントリ編集リクエストを処理
func (h *Handlers) EditPurchaseEntry(w http.ResponseWriter, r *http.Request) {
	var req ledger.EditPurchaseEntryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.ledger.EditPurchaseEntry(r.Context(), req); err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "仕入エントリ編集が完了しました",
	})
}

// CreateProductionRun handles production run creation
// 生産ラン作成リクエストを処理
func (h *Handlers) CreateProductionRun(w http.ResponseWriter, r *http.Request) {
	var req ledger.CreateProductionRunInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	run, err := h.ledger.CreateProductionRun(r.Context(), req)
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, run)
}

// EditProductionOutputEntry handles production output corrections
// 生産出力エントリ編集リクエストを処理
func (h *Handlers) EditProductionOutputEntry(w http.ResponseWriter, r *http.Request) {
	var req ledger.EditProductionOutputInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.ledger.EditProductionOutputEntry(r.Context(), req); err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "生産出力エントリ編集が完了しました",
	})
}

// AddOutputsRequest represents request to append outputs to a run
// 生産ラン出力追加リクエストを表現
type AddOutputsRequest struct {
	Outputs []ledger.ProductionOutputInput `json:"outputs"`
}

// AddOutputsToProductionRun handles output additions to an existing run
// 既存生産ランへの出力追加リクエストを処理
func (h *Handlers) AddOutputsToProductionRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["runId"]

	var req AddOutputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.ledger.AddOutputsToProductionRun(r.Context(), runID, req.Outputs); err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "生産ラン出力追加が完了しました",
	})
}

// GetRunOutputs handles output listing for a production run
// 生産ラン出力一覧リクエストを処理
func (h *Handlers) GetRunOutputs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	outputs, err := h.ledger.OutputsForRun(r.Context(), vars["runId"])
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, outputs)
}

// CreateDispatch handles dispatch creation
// 出荷作成リクエストを処理
func (h *Handlers) CreateDispatch(w http.ResponseWriter, r *http.Request) {
	var req ledger.CreateDispatchInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	dispatch, err := h.ledger.CreateDispatch(r.Context(), req)
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, dispatch)
}

// GetLot handles single lot retrieval
// ロット取得リクエストを処理
func (h *Handlers) GetLot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	lot, err := h.ledger.GetLot(r.Context(), vars["lotId"])
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, lot)
}

// GetLotHistory handles lot journal retrieval
// ロット台帳履歴リクエストを処理
func (h *Handlers) GetLotHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	entries, err := h.ledger.HistoryForLot(r.Context(), vars["lotId"])
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, entries)
}

// GetWarehouseLots handles active lot listing for a warehouse
// 倉庫アクティブロット一覧リクエストを処理
func (h *Handlers) GetWarehouseLots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	lots, err := h.ledger.ActiveLotsForWarehouse(r.Context(), vars["warehouseId"])
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, lots)
}

// GetWarehouseCapacity handles used capacity queries
// 倉庫使用量リクエストを処理
func (h *Handlers) GetWarehouseCapacity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	used, err := h.ledger.UsedWarehouseCapacity(r.Context(), vars["warehouseId"], r.URL.Query().Get("exclude_lot_id"))
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]float64{
		"used_capacity": used,
	})
}

// GetProductLots handles active lot listing for a product
// 商品アクティブロット一覧リクエストを処理
func (h *Handlers) GetProductLots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	organizationID := r.URL.Query().Get("organization_id")

	lots, err := h.ledger.ActiveLotsForProduct(r.Context(), organizationID, vars["productId"])
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, lots)
}

// GetOutputProducts handles output definition listing for an input product
// 入力商品の出力定義一覧リクエストを処理
func (h *Handlers) GetOutputProducts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	organizationID := r.URL.Query().Get("organization_id")

	defs, err := h.ledger.OutputProductsFor(r.Context(), organizationID, vars["productId"])
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, defs)
}

// GetNetMovement handles the daily net movement report
// 日次移動レポートリクエストを処理
func (h *Handlers) GetNetMovement(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	organizationID := query.Get("organization_id")

	from, err := time.Parse("2006-01-02", query.Get("from"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "無効な開始日です")
		return
	}
	to, err := time.Parse("2006-01-02", query.Get("to"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "無効な終了日です")
		return
	}
	// 終了日をその日の終わりまで含める
	to = to.Add(24*time.Hour - time.Nanosecond)

	movements, err := h.ledger.NetMovementByDay(r.Context(), organizationID, from, to)
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, movements)
}

// CreateProduct handles product registration
// 商品登録リクエストを処理
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product ledger.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.ledger.RegisterProduct(r.Context(), &product); err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, product)
}

// CreateWarehouse handles warehouse registration
// 倉庫登録リクエストを処理
func (h *Handlers) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var warehouse ledger.Warehouse
	if err := json.NewDecoder(r.Body).Decode(&warehouse); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.ledger.RegisterWarehouse(r.Context(), &warehouse); err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, warehouse)
}

// CreateOutputDefinitionRequest represents request to declare an output edge
// 出力定義登録リクエストを表現
type CreateOutputDefinitionRequest struct {
	OrganizationID  string `json:"organization_id"`
	InputProductID  string `json:"input_product_id"`
	OutputProductID string `json:"output_product_id"`
}

// CreateOutputDefinition handles output definition registration
// 出力定義登録リクエストを処理
func (h *Handlers) CreateOutputDefinition(w http.ResponseWriter, r *http.Request) {
	var req CreateOutputDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	def, err := h.ledger.DefineOutputProduct(r.Context(), req.OrganizationID, req.InputProductID, req.OutputProductID)
	if err != nil {
		h.sendError(w, errorStatus(err), err.Error())
		return
	}

	h.sendSuccess(w, def)
}

// sendSuccess sends a success response
// 成功レスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error response
// エラーレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
