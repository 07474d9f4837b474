package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/nemonet1337/kakoGoFramework/pkg/ledger"
)

// SQLiteStorage implements the Storage interface using SQLite. Intended
// for single-node deployments and local development.
// SQLiteを使用したStorageインターフェースの実装。単一ノード運用と
// ローカル開発向け
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ledger.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance
// 新しいSQLiteストレージインスタンスを作成
func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// SQLiteは単一ライターのため接続を1本に制限する
	db.SetMaxOpenConns(1)

	return &SQLiteStorage{
		db:     db,
		logger: logger,
	}, nil
}

// WithinTransaction runs fn inside one transaction. SQLite serializes
// writers, so the default isolation already gives the required
// all-or-nothing semantics.
// 一つのトランザクション内でfnを実行
func (s *SQLiteStorage) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}

	if err := fn(ctx, &sqliteTx{tx: sqlTx, logger: s.logger}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Error("ロールバックに失敗しました", zap.Error(rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗しました: %w", err)
	}
	return nil
}

// Ping checks database connectivity
// データベース接続をチェック
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// sqliteTx implements the record operations on one open transaction
// 一つのトランザクション上でレコード操作を実装
type sqliteTx struct {
	tx     *sql.Tx
	logger *zap.Logger
}

var _ ledger.Tx = (*sqliteTx)(nil)

// isSQLiteUniqueViolation reports whether err is a unique constraint error
// 一意制約違反かどうかを判定
func isSQLiteUniqueViolation(err error) bool {
	sqliteErr, ok := err.(sqlite3.Error)
	return ok && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// CreateProduct creates a new product definition
// 新しい商品定義を作成
func (t *sqliteTx) CreateProduct(ctx context.Context, product *ledger.Product) error {
	factorIDs, err := json.Marshal(product.QualityFactorIDs)
	if err != nil {
		return fmt.Errorf("品質係数IDのJSON変換に失敗しました: %w", err)
	}

	query := `
		INSERT INTO products (id, organization_id, name, sku, type, base_unit, presentation, average_weight, quality_factor_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = t.tx.ExecContext(ctx, query,
		product.ID,
		product.OrganizationID,
		product.Name,
		product.SKU,
		product.Type,
		product.BaseUnit,
		product.Presentation,
		product.AverageWeight,
		factorIDs,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("商品作成に失敗しました: %w", err)
	}

	return nil
}

// GetProduct retrieves a product by ID
// IDで商品を取得
func (t *sqliteTx) GetProduct(ctx context.Context, productID string) (*ledger.Product, error) {
	query := `
		SELECT id, organization_id, name, sku, type, base_unit, presentation, average_weight, quality_factor_ids, created_at, updated_at
		FROM products
		WHERE id = ?`

	product := &ledger.Product{}
	var factorIDs []byte
	err := t.tx.QueryRowContext(ctx, query, productID).Scan(
		&product.ID,
		&product.OrganizationID,
		&product.Name,
		&product.SKU,
		&product.Type,
		&product.BaseUnit,
		&product.Presentation,
		&product.AverageWeight,
		&factorIDs,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrProductNotFound
		}
		return nil, fmt.Errorf("商品取得に失敗しました: %w", err)
	}

	if len(factorIDs) > 0 {
		if err := json.Unmarshal(factorIDs, &product.QualityFactorIDs); err != nil {
			t.logger.Warn("品質係数IDのパースに失敗しました", zap.Error(err))
		}
	}

	return product, nil
}

// CreateWarehouse creates a new warehouse
// 新しい倉庫を作成
func (t *sqliteTx) CreateWarehouse(ctx context.Context, warehouse *ledger.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, organization_id, name, capacity, base_unit, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		warehouse.ID,
		warehouse.OrganizationID,
		warehouse.Name,
		warehouse.Capacity,
		warehouse.BaseUnit,
		warehouse.RowCount,
		warehouse.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("倉庫作成に失敗しました: %w", err)
	}

	return nil
}

// GetWarehouse retrieves a warehouse by ID
// IDで倉庫を取得
func (t *sqliteTx) GetWarehouse(ctx context.Context, warehouseID string) (*ledger.Warehouse, error) {
	query := `
		SELECT id, organization_id, name, capacity, base_unit, row_count, created_at
		FROM warehouses
		WHERE id = ?`

	warehouse := &ledger.Warehouse{}
	err := t.tx.QueryRowContext(ctx, query, warehouseID).Scan(
		&warehouse.ID,
		&warehouse.OrganizationID,
		&warehouse.Name,
		&warehouse.Capacity,
		&warehouse.BaseUnit,
		&warehouse.RowCount,
		&warehouse.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrWarehouseNotFound
		}
		return nil, fmt.Errorf("倉庫取得に失敗しました: %w", err)
	}

	return warehouse, nil
}

// CreateOutputDefinition creates a new input to output product edge
// 新しい出力定義を作成
func (t *sqliteTx) CreateOutputDefinition(ctx context.Context, def *ledger.ProductOutputDefinition) error {
	query := `
		INSERT INTO product_output_definitions (id, organization_id, input_product_id, output_product_id)
		VALUES (?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		def.ID,
		def.OrganizationID,
		def.InputProductID,
		def.OutputProductID,
	)

	if err != nil {
		return fmt.Errorf("出力定義作成に失敗しました: %w", err)
	}

	return nil
}

// ListOutputDefinitions retrieves the declared outputs for an input product
// 入力商品に対する出力定義一覧を取得
func (t *sqliteTx) ListOutputDefinitions(ctx context.Context, organizationID, inputProductID string) ([]ledger.ProductOutputDefinition, error) {
	query := `
		SELECT id, organization_id, input_product_id, output_product_id
		FROM product_output_definitions
		WHERE organization_id = ? AND input_product_id = ?
		ORDER BY id`

	rows, err := t.tx.QueryContext(ctx, query, organizationID, inputProductID)
	if err != nil {
		return nil, fmt.Errorf("出力定義取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var defs []ledger.ProductOutputDefinition
	for rows.Next() {
		var def ledger.ProductOutputDefinition
		err := rows.Scan(
			&def.ID,
			&def.OrganizationID,
			&def.InputProductID,
			&def.OutputProductID,
		)
		if err != nil {
			return nil, fmt.Errorf("出力定義スキャンに失敗しました: %w", err)
		}
		defs = append(defs, def)
	}

	return defs, rows.Err()
}

// CreateLot inserts a lot, relying on the unique index on
// (organization_id, lot_number) for the duplicate check.
// ロットを登録する。一意性は(組織ID, ロット番号)の一意インデックスに依存
func (t *sqliteTx) CreateLot(ctx context.Context, lot *ledger.InventoryLot) error {
	factorValues, err := json.Marshal(lot.QualityFactorValues)
	if err != nil {
		return fmt.Errorf("品質係数値のJSON変換に失敗しました: %w", err)
	}

	query := `
		INSERT INTO inventory_lots (id, organization_id, product_id, warehouse_id, lot_number, quantity, vehicle_info, creation_date, quality_factor_values, source_type, source_purchase_id, source_run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = t.tx.ExecContext(ctx, query,
		lot.ID,
		lot.OrganizationID,
		lot.ProductID,
		lot.WarehouseID,
		lot.LotNumber,
		lot.Quantity,
		lot.VehicleInfo,
		lot.CreationDate,
		factorValues,
		lot.Source.Type,
		lot.Source.PurchaseID,
		lot.Source.ProductionRunID,
	)

	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ledger.ErrDuplicateLotNumber
		}
		return fmt.Errorf("ロット作成に失敗しました: %w", err)
	}

	return nil
}

// scanLot scans one lot row
// ロット行を一件スキャン
func (t *sqliteTx) scanLot(scan func(dest ...any) error) (*ledger.InventoryLot, error) {
	lot := &ledger.InventoryLot{}
	var factorValues []byte
	err := scan(
		&lot.ID,
		&lot.OrganizationID,
		&lot.ProductID,
		&lot.WarehouseID,
		&lot.LotNumber,
		&lot.Quantity,
		&lot.VehicleInfo,
		&lot.CreationDate,
		&factorValues,
		&lot.Source.Type,
		&lot.Source.PurchaseID,
		&lot.Source.ProductionRunID,
	)
	if err != nil {
		return nil, err
	}
	if len(factorValues) > 0 {
		if err := json.Unmarshal(factorValues, &lot.QualityFactorValues); err != nil {
			t.logger.Warn("品質係数値のパースに失敗しました", zap.Error(err))
		}
	}
	return lot, nil
}

// GetLot retrieves a lot by ID. SQLite locks at database level, so no
// explicit row lock is needed.
// IDでロットを取得する。SQLiteはデータベース単位でロックするため
// 明示的な行ロックは不要
func (t *sqliteTx) GetLot(ctx context.Context, lotID string) (*ledger.InventoryLot, error) {
	query := `SELECT ` + lotColumns + ` FROM inventory_lots WHERE id = ?`

	lot, err := t.scanLot(t.tx.QueryRowContext(ctx, query, lotID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrLotNotFound
		}
		return nil, fmt.Errorf("ロット取得に失敗しました: %w", err)
	}

	return lot, nil
}

// UpdateLot updates a lot's mutable fields
// ロットの可変フィールドを更新
func (t *sqliteTx) UpdateLot(ctx context.Context, lot *ledger.InventoryLot) error {
	factorValues, err := json.Marshal(lot.QualityFactorValues)
	if err != nil {
		return fmt.Errorf("品質係数値のJSON変換に失敗しました: %w", err)
	}

	query := `
		UPDATE inventory_lots
		SET warehouse_id = ?, lot_number = ?, quantity = ?, vehicle_info = ?, quality_factor_values = ?
		WHERE id = ?`

	result, err := t.tx.ExecContext(ctx, query,
		lot.WarehouseID,
		lot.LotNumber,
		lot.Quantity,
		lot.VehicleInfo,
		factorValues,
		lot.ID,
	)

	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ledger.ErrDuplicateLotNumber
		}
		return fmt.Errorf("ロット更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}

	if rowsAffected == 0 {
		return ledger.ErrLotNotFound
	}

	return nil
}

// LotNumberExists reports whether another lot of the organization holds
// the given number
// 組織内で指定番号を持つ他ロットの有無を返す
func (t *sqliteTx) LotNumberExists(ctx context.Context, organizationID, lotNumber, excludeLotID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM inventory_lots
			WHERE organization_id = ? AND lot_number = ? AND (? = '' OR id <> ?)
		)`

	var exists bool
	err := t.tx.QueryRowContext(ctx, query, organizationID, lotNumber, excludeLotID, excludeLotID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ロット番号確認に失敗しました: %w", err)
	}

	return exists, nil
}

// ListActiveLotsByWarehouse retrieves lots with quantity > 0 in a warehouse
// 倉庫内の数量が正のロットを取得
func (t *sqliteTx) ListActiveLotsByWarehouse(ctx context.Context, warehouseID string) ([]ledger.InventoryLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM inventory_lots
		WHERE warehouse_id = ? AND quantity > 0
		ORDER BY creation_date DESC`

	return t.listLots(ctx, query, warehouseID)
}

// ListActiveLotsByProduct retrieves lots with quantity > 0 for a product
// 組織内で指定商品の数量が正のロットを取得
func (t *sqliteTx) ListActiveLotsByProduct(ctx context.Context, organizationID, productID string) ([]ledger.InventoryLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM inventory_lots
		WHERE organization_id = ? AND product_id = ? AND quantity > 0
		ORDER BY creation_date DESC`

	return t.listLots(ctx, query, organizationID, productID)
}

// listLots runs a lot query and scans all rows
// ロットクエリを実行して全行をスキャン
func (t *sqliteTx) listLots(ctx context.Context, query string, args ...any) ([]ledger.InventoryLot, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ロット一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lots []ledger.InventoryLot
	for rows.Next() {
		lot, err := t.scanLot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ロットスキャンに失敗しました: %w", err)
		}
		lots = append(lots, *lot)
	}

	return lots, rows.Err()
}

// UsedWarehouseCapacity sums active lot quantities in a warehouse
// 倉庫内アクティブロットの数量合計を取得
func (t *sqliteTx) UsedWarehouseCapacity(ctx context.Context, warehouseID, excludeLotID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM inventory_lots
		WHERE warehouse_id = ? AND quantity > 0 AND (? = '' OR id <> ?)`

	var used float64
	err := t.tx.QueryRowContext(ctx, query, warehouseID, excludeLotID, excludeLotID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("倉庫使用量取得に失敗しました: %w", err)
	}

	return used, nil
}

// CreatePurchase creates a new purchase record
// 新しい仕入記録を作成
func (t *sqliteTx) CreatePurchase(ctx context.Context, purchase *ledger.Purchase) error {
	query := `
		INSERT INTO purchases (id, organization_id, supplier_id, order_date, status)
		VALUES (?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		purchase.ID,
		purchase.OrganizationID,
		purchase.SupplierID,
		purchase.OrderDate,
		purchase.Status,
	)

	if err != nil {
		return fmt.Errorf("仕入作成に失敗しました: %w", err)
	}

	return nil
}

// GetPurchase retrieves a purchase by ID
// IDで仕入を取得
func (t *sqliteTx) GetPurchase(ctx context.Context, purchaseID string) (*ledger.Purchase, error) {
	query := `
		SELECT id, organization_id, supplier_id, order_date, status
		FROM purchases
		WHERE id = ?`

	purchase := &ledger.Purchase{}
	err := t.tx.QueryRowContext(ctx, query, purchaseID).Scan(
		&purchase.ID,
		&purchase.OrganizationID,
		&purchase.SupplierID,
		&purchase.OrderDate,
		&purchase.Status,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("仕入取得に失敗しました: %w", err)
	}

	return purchase, nil
}

// UpdatePurchase updates a purchase record
// 仕入記録を更新
func (t *sqliteTx) UpdatePurchase(ctx context.Context, purchase *ledger.Purchase) error {
	query := `
		UPDATE purchases
		SET supplier_id = ?, order_date = ?, status = ?
		WHERE id = ?`

	result, err := t.tx.ExecContext(ctx, query,
		purchase.SupplierID,
		purchase.OrderDate,
		purchase.Status,
		purchase.ID,
	)

	if err != nil {
		return fmt.Errorf("仕入更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}

	if rowsAffected == 0 {
		return ledger.ErrPurchaseNotFound
	}

	return nil
}

// CreateProductionRun creates a new production run record
// 新しい生産ラン記録を作成
func (t *sqliteTx) CreateProductionRun(ctx context.Context, run *ledger.ProductionRun) error {
	query := `
		INSERT INTO production_runs (id, organization_id, run_date, input_lot_id, quantity_consumed, notes)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		run.ID,
		run.OrganizationID,
		run.RunDate,
		run.InputLotID,
		run.QuantityConsumed,
		run.Notes,
	)

	if err != nil {
		return fmt.Errorf("生産ラン作成に失敗しました: %w", err)
	}

	return nil
}

// GetProductionRun retrieves a production run by ID
// IDで生産ランを取得
func (t *sqliteTx) GetProductionRun(ctx context.Context, runID string) (*ledger.ProductionRun, error) {
	query := `
		SELECT id, organization_id, run_date, input_lot_id, quantity_consumed, notes
		FROM production_runs
		WHERE id = ?`

	run := &ledger.ProductionRun{}
	err := t.tx.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&run.OrganizationID,
		&run.RunDate,
		&run.InputLotID,
		&run.QuantityConsumed,
		&run.Notes,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrRunNotFound
		}
		return nil, fmt.Errorf("生産ラン取得に失敗しました: %w", err)
	}

	return run, nil
}

// UpdateProductionRun updates a production run record
// 生産ラン記録を更新
func (t *sqliteTx) UpdateProductionRun(ctx context.Context, run *ledger.ProductionRun) error {
	query := `
		UPDATE production_runs
		SET run_date = ?, quantity_consumed = ?, notes = ?
		WHERE id = ?`

	result, err := t.tx.ExecContext(ctx, query,
		run.RunDate,
		run.QuantityConsumed,
		run.Notes,
		run.ID,
	)

	if err != nil {
		return fmt.Errorf("生産ラン更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}

	if rowsAffected == 0 {
		return ledger.ErrRunNotFound
	}

	return nil
}

// CreateProductionOutput creates a new production output record
// 新しい生産出力記録を作成
func (t *sqliteTx) CreateProductionOutput(ctx context.Context, output *ledger.ProductionOutput) error {
	query := `
		INSERT INTO production_outputs (id, production_run_id, product_id, quantity_produced, inventory_lot_id)
		VALUES (?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		output.ID,
		output.ProductionRunID,
		output.ProductID,
		output.QuantityProduced,
		output.InventoryLotID,
	)

	if err != nil {
		return fmt.Errorf("生産出力作成に失敗しました: %w", err)
	}

	return nil
}

// GetProductionOutput retrieves a production output by ID
// IDで生産出力を取得
func (t *sqliteTx) GetProductionOutput(ctx context.Context, outputID string) (*ledger.ProductionOutput, error) {
	query := `
		SELECT id, production_run_id, product_id, quantity_produced, inventory_lot_id
		FROM production_outputs
		WHERE id = ?`

	output := &ledger.ProductionOutput{}
	err := t.tx.QueryRowContext(ctx, query, outputID).Scan(
		&output.ID,
		&output.ProductionRunID,
		&output.ProductID,
		&output.QuantityProduced,
		&output.InventoryLotID,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrOutputNotFound
		}
		return nil, fmt.Errorf("生産出力取得に失敗しました: %w", err)
	}

	return output, nil
}

// UpdateProductionOutput updates a production output record
// 生産出力記録を更新
func (t *sqliteTx) UpdateProductionOutput(ctx context.Context, output *ledger.ProductionOutput) error {
	query := `
		UPDATE production_outputs
		SET quantity_produced = ?
		WHERE id = ?`

	result, err := t.tx.ExecContext(ctx, query, output.QuantityProduced, output.ID)
	if err != nil {
		return fmt.Errorf("生産出力更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}

	if rowsAffected == 0 {
		return ledger.ErrOutputNotFound
	}

	return nil
}

// ListProductionOutputs retrieves the output rows of a production run
// 生産ランの出力行を取得
func (t *sqliteTx) ListProductionOutputs(ctx context.Context, runID string) ([]ledger.ProductionOutput, error) {
	query := `
		SELECT id, production_run_id, product_id, quantity_produced, inventory_lot_id
		FROM production_outputs
		WHERE production_run_id = ?
		ORDER BY id`

	rows, err := t.tx.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("生産出力一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var outputs []ledger.ProductionOutput
	for rows.Next() {
		var output ledger.ProductionOutput
		err := rows.Scan(
			&output.ID,
			&output.ProductionRunID,
			&output.ProductID,
			&output.QuantityProduced,
			&output.InventoryLotID,
		)
		if err != nil {
			return nil, fmt.Errorf("生産出力スキャンに失敗しました: %w", err)
		}
		outputs = append(outputs, output)
	}

	return outputs, rows.Err()
}

// CreateLotQuality creates a quality measurement record
// 品質測定記録を作成
func (t *sqliteTx) CreateLotQuality(ctx context.Context, quality *ledger.LotQuality) error {
	query := `
		INSERT INTO lot_qualities (id, production_output_id, quality_factor_id, value)
		VALUES (?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		quality.ID,
		quality.ProductionOutputID,
		quality.QualityFactorID,
		quality.Value,
	)

	if err != nil {
		return fmt.Errorf("品質記録作成に失敗しました: %w", err)
	}

	return nil
}

// CreateDispatch creates a new dispatch record
// 新しい出荷記録を作成
func (t *sqliteTx) CreateDispatch(ctx context.Context, dispatch *ledger.Dispatch) error {
	query := `
		INSERT INTO dispatches (id, organization_id, customer_id, dispatch_date, status)
		VALUES (?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		dispatch.ID,
		dispatch.OrganizationID,
		dispatch.CustomerID,
		dispatch.DispatchDate,
		dispatch.Status,
	)

	if err != nil {
		return fmt.Errorf("出荷作成に失敗しました: %w", err)
	}

	return nil
}

// CreateDispatchLineItem creates a dispatch line item record
// 出荷明細記録を作成
func (t *sqliteTx) CreateDispatchLineItem(ctx context.Context, item *ledger.DispatchLineItem) error {
	query := `
		INSERT INTO dispatch_line_items (id, dispatch_id, inventory_lot_id, quantity_dispatched)
		VALUES (?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		item.ID,
		item.DispatchID,
		item.InventoryLotID,
		item.QuantityDispatched,
	)

	if err != nil {
		return fmt.Errorf("出荷明細作成に失敗しました: %w", err)
	}

	return nil
}

// AppendActivity appends one journal entry
// 台帳エントリを一件追記
func (t *sqliteTx) AppendActivity(ctx context.Context, entry *ledger.ActivityLogEntry) error {
	query := `
		INSERT INTO activity_log (id, organization_id, inventory_lot_id, type, quantity_change, related_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		entry.InventoryLotID,
		entry.Type,
		entry.QuantityChange,
		entry.RelatedID,
		entry.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("台帳エントリ追記に失敗しました: %w", err)
	}

	return nil
}

// ActivityForLot retrieves journal entries for a lot, newest first
// ロットの台帳エントリを新しい順に取得
func (t *sqliteTx) ActivityForLot(ctx context.Context, lotID string) ([]ledger.ActivityLogEntry, error) {
	query := `
		SELECT id, organization_id, inventory_lot_id, type, quantity_change, related_id, timestamp
		FROM activity_log
		WHERE inventory_lot_id = ?
		ORDER BY timestamp DESC, id DESC`

	rows, err := t.tx.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("台帳エントリ取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []ledger.ActivityLogEntry
	for rows.Next() {
		var entry ledger.ActivityLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.OrganizationID,
			&entry.InventoryLotID,
			&entry.Type,
			&entry.QuantityChange,
			&entry.RelatedID,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("台帳エントリスキャンに失敗しました: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// NetMovementByDay aggregates received and dispatched quantities per day
// 日毎の入荷量と出荷量を集計
func (t *sqliteTx) NetMovementByDay(ctx context.Context, organizationID string, from, to time.Time) ([]ledger.DailyMovement, error) {
	query := `
		SELECT strftime('%Y-%m-%d', timestamp) AS day,
		       COALESCE(SUM(CASE WHEN type IN ('reception', 'production_in') THEN quantity_change ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type = 'dispatch' THEN -quantity_change ELSE 0 END), 0)
		FROM activity_log
		WHERE organization_id = ? AND timestamp >= ? AND timestamp <= ?
		GROUP BY day
		ORDER BY day`

	rows, err := t.tx.QueryContext(ctx, query, organizationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("日次移動集計に失敗しました: %w", err)
	}
	defer rows.Close()

	var movements []ledger.DailyMovement
	for rows.Next() {
		var m ledger.DailyMovement
		if err := rows.Scan(&m.Date, &m.Received, &m.Dispatched); err != nil {
			return nil, fmt.Errorf("日次移動スキャンに失敗しました: %w", err)
		}
		movements = append(movements, m)
	}

	return movements, rows.Err()
}
