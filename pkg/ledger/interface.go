package ledger

import (
	"context"
	"time"
)

// PurchaseManager defines the purchase receiving operations
// 仕入入荷操作のインターフェースを定義
type PurchaseManager interface {
	CreatePurchase(ctx context.Context, organizationID string, supplierID *string, orderDate time.Time) (*Purchase, error)
	ReceivePurchase(ctx context.Context, in ReceivePurchaseInput) (*InventoryLot, error)
	EditPurchaseEntry(ctx context.Context, in EditPurchaseEntryInput) error
}

// ProductionManager defines the production engine operations
// 生産エンジン操作のインターフェースを定義
type ProductionManager interface {
	CreateProductionRun(ctx context.Context, in CreateProductionRunInput) (*ProductionRun, error)
	EditProductionOutputEntry(ctx context.Context, in EditProductionOutputInput) error
	AddOutputsToProductionRun(ctx context.Context, runID string, outputs []ProductionOutputInput) error
	OutputsForRun(ctx context.Context, runID string) ([]ProductionOutput, error)
	OutputProductsFor(ctx context.Context, organizationID, inputProductID string) ([]ProductOutputDefinition, error)
}

// DispatchManager defines the dispatch (sale) operations
// 出荷（販売）操作のインターフェースを定義
type DispatchManager interface {
	CreateDispatch(ctx context.Context, in CreateDispatchInput) (*Dispatch, error)
}

// LotManager defines lot store primitives and derived views
// ロットストアの基本操作と派生ビューを定義
type LotManager interface {
	GetLot(ctx context.Context, lotID string) (*InventoryLot, error)
	ActiveLotsForWarehouse(ctx context.Context, warehouseID string) ([]InventoryLot, error)
	ActiveLotsForProduct(ctx context.Context, organizationID, productID string) ([]InventoryLot, error)
	UsedWarehouseCapacity(ctx context.Context, warehouseID, excludeLotID string) (float64, error)
}

// ActivityManager defines the append-only journal query surface
// 追記専用台帳の照会インターフェースを定義
type ActivityManager interface {
	HistoryForLot(ctx context.Context, lotID string) ([]ActivityLogEntry, error)
	NetMovementByDay(ctx context.Context, organizationID string, from, to time.Time) ([]DailyMovement, error)
}

// Storage is the transactional boundary of the data layer. Every public
// mutation executes inside one WithinTransaction call: either every
// read-modify-write step and every journal append commits, or none do.
// データ層のトランザクション境界。公開ミューテーションは必ず一つの
// WithinTransaction呼び出し内で実行される
type Storage interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the record-level operation set available inside a transaction.
// トランザクション内で利用可能なレコード操作群
type Tx interface {
	// Metadata lookups
	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, productID string) (*Product, error)
	CreateWarehouse(ctx context.Context, warehouse *Warehouse) error
	GetWarehouse(ctx context.Context, warehouseID string) (*Warehouse, error)
	CreateOutputDefinition(ctx context.Context, def *ProductOutputDefinition) error
	ListOutputDefinitions(ctx context.Context, organizationID, inputProductID string) ([]ProductOutputDefinition, error)

	// Lot store. CreateLot is insert-if-absent keyed by
	// (organization_id, lot_number) and returns ErrDuplicateLotNumber
	// on conflict.
	CreateLot(ctx context.Context, lot *InventoryLot) error
	GetLot(ctx context.Context, lotID string) (*InventoryLot, error)
	UpdateLot(ctx context.Context, lot *InventoryLot) error
	LotNumberExists(ctx context.Context, organizationID, lotNumber, excludeLotID string) (bool, error)
	ListActiveLotsByWarehouse(ctx context.Context, warehouseID string) ([]InventoryLot, error)
	ListActiveLotsByProduct(ctx context.Context, organizationID, productID string) ([]InventoryLot, error)
	UsedWarehouseCapacity(ctx context.Context, warehouseID, excludeLotID string) (float64, error)

	// Purchases
	CreatePurchase(ctx context.Context, purchase *Purchase) error
	GetPurchase(ctx context.Context, purchaseID string) (*Purchase, error)
	UpdatePurchase(ctx context.Context, purchase *Purchase) error

	// Production
	CreateProductionRun(ctx context.Context, run *ProductionRun) error
	GetProductionRun(ctx context.Context, runID string) (*ProductionRun, error)
	UpdateProductionRun(ctx context.Context, run *ProductionRun) error
	CreateProductionOutput(ctx context.Context, output *ProductionOutput) error
	GetProductionOutput(ctx context.Context, outputID string) (*ProductionOutput, error)
	UpdateProductionOutput(ctx context.Context, output *ProductionOutput) error
	ListProductionOutputs(ctx context.Context, runID string) ([]ProductionOutput, error)
	CreateLotQuality(ctx context.Context, quality *LotQuality) error

	// Dispatches
	CreateDispatch(ctx context.Context, dispatch *Dispatch) error
	CreateDispatchLineItem(ctx context.Context, item *DispatchLineItem) error

	// Activity journal (append only; no update or delete exists)
	AppendActivity(ctx context.Context, entry *ActivityLogEntry) error
	ActivityForLot(ctx context.Context, lotID string) ([]ActivityLogEntry, error)
	NetMovementByDay(ctx context.Context, organizationID string, from, to time.Time) ([]DailyMovement, error)
}
