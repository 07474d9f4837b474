package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ledger implements the public operation set over a transactional
// Storage. It performs no concurrency of its own; correctness under
// concurrent callers rests on the storage transaction isolation.
// トランザクショナルなStorage上で公開操作群を実装する。
// 並行呼び出しの正しさはストレージのトランザクション分離に依存する
type Ledger struct {
	storage Storage          // ストレージ層
	logger  *zap.Logger      // ログ
	now     func() time.Time // 現在時刻の供給源（テストで差し替え可能）
}

// すべてのインターフェースを実装することを明示
var (
	_ PurchaseManager   = (*Ledger)(nil)
	_ ProductionManager = (*Ledger)(nil)
	_ DispatchManager   = (*Ledger)(nil)
	_ LotManager        = (*Ledger)(nil)
	_ ActivityManager   = (*Ledger)(nil)
)

// NewLedger creates a new ledger over the given storage
// 指定ストレージ上に新しい台帳を作成
func NewLedger(storage Storage, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// GetLot retrieves one inventory lot by ID
// IDで在庫ロットを一件取得
func (l *Ledger) GetLot(ctx context.Context, lotID string) (*InventoryLot, error) {
	var lot *InventoryLot
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		lot, err = tx.GetLot(ctx, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// ActiveLotsForWarehouse lists lots with quantity > 0 in a warehouse
// 倉庫内の数量が正のロットを一覧取得
func (l *Ledger) ActiveLotsForWarehouse(ctx context.Context, warehouseID string) ([]InventoryLot, error) {
	var lots []InventoryLot
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		lots, err = tx.ListActiveLotsByWarehouse(ctx, warehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// ActiveLotsForProduct lists lots with quantity > 0 for a product,
// scoped by organization.
// 組織内で指定商品の数量が正のロットを一覧取得
func (l *Ledger) ActiveLotsForProduct(ctx context.Context, organizationID, productID string) ([]InventoryLot, error) {
	var lots []InventoryLot
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		lots, err = tx.ListActiveLotsByProduct(ctx, organizationID, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// UsedWarehouseCapacity sums the quantity of active lots in a
// warehouse, optionally excluding one lot. Recomputed on demand; the
// read cost buys always-correct accounting without invalidation.
// 倉庫内のアクティブロット数量の合計。要求時に毎回再計算される
func (l *Ledger) UsedWarehouseCapacity(ctx context.Context, warehouseID, excludeLotID string) (float64, error) {
	var used float64
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		used, err = tx.UsedWarehouseCapacity(ctx, warehouseID, excludeLotID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return used, nil
}

// HistoryForLot returns the journal entries of a lot, newest first
// ロットの台帳エントリを新しい順に取得
func (l *Ledger) HistoryForLot(ctx context.Context, lotID string) ([]ActivityLogEntry, error) {
	var entries []ActivityLogEntry
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		entries, err = tx.ActivityForLot(ctx, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// NetMovementByDay aggregates received (reception, production_in) and
// dispatched quantities per day over the date range.
// 日毎の入荷・生産入庫量と出荷量を集計
func (l *Ledger) NetMovementByDay(ctx context.Context, organizationID string, from, to time.Time) ([]DailyMovement, error) {
	if from.After(to) {
		return nil, NewValidationError("date_range", "開始日が終了日より後になっています", from.Format("2006-01-02")+" > "+to.Format("2006-01-02"))
	}
	var rows []DailyMovement
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		rows, err = tx.NetMovementByDay(ctx, organizationID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// OutputProductsFor lists the declared legal outputs for an input
// product. Used by UI filtering only; production mutations accept
// arbitrary output products.
// 入力商品に対して宣言された出力商品の定義を一覧取得
func (l *Ledger) OutputProductsFor(ctx context.Context, organizationID, inputProductID string) ([]ProductOutputDefinition, error) {
	var defs []ProductOutputDefinition
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		defs, err = tx.ListOutputDefinitions(ctx, organizationID, inputProductID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// requireWarehouseInOrg loads a warehouse and verifies its organization
// 倉庫を取得し組織の一致を確認
func requireWarehouseInOrg(ctx context.Context, tx Tx, warehouseID, organizationID string) (*Warehouse, error) {
	warehouse, err := tx.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse.OrganizationID != organizationID {
		return nil, ErrAccessDenied
	}
	return warehouse, nil
}

// requireProductInOrg loads a product and verifies its organization
// 商品を取得し組織の一致を確認
func requireProductInOrg(ctx context.Context, tx Tx, productID, organizationID string) (*Product, error) {
	product, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.OrganizationID != organizationID {
		return nil, ErrAccessDenied
	}
	return product, nil
}
