// Package ledger provides the inventory ledger and lot-transaction engine
// for a goods processing business: purchase receiving, production runs,
// dispatches and the append-only activity journal behind them.
// 加工業向けの在庫台帳・ロットトランザクションエンジンを提供
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ProductType classifies what role a product plays in processing
// 加工工程における商品の役割を分類
type ProductType string

const (
	ProductTypeRawMaterial  ProductType = "raw_material"  // 原材料
	ProductTypeFinishedGood ProductType = "finished_good" // 完成品
	ProductTypeByProduct    ProductType = "by_product"    // 副産物
)

// Product represents a product definition scoped to an organization
// 組織に属する商品定義を表現
type Product struct {
	ID               string      `json:"id" db:"id"`                               // 商品ID
	OrganizationID   string      `json:"organization_id" db:"organization_id"`     // 組織ID
	Name             string      `json:"name" db:"name"`                           // 商品名
	SKU              string      `json:"sku" db:"sku"`                             // SKU
	Type             ProductType `json:"type" db:"type"`                           // 商品タイプ
	BaseUnit         WeightUnit  `json:"base_unit" db:"base_unit"`                 // 表示単位
	Presentation     string      `json:"presentation" db:"presentation"`           // 荷姿
	AverageWeight    float64     `json:"average_weight" db:"average_weight"`       // 平均重量（グラム）
	QualityFactorIDs []string    `json:"quality_factor_ids" db:"quality_factor_ids"` // 品質係数ID
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`               // 作成日時
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`               // 更新日時
}

// Warehouse represents a storage warehouse with a capacity in grams
// グラム単位の容量を持つ倉庫を表現
type Warehouse struct {
	ID             string     `json:"id" db:"id"`                           // 倉庫ID
	OrganizationID string     `json:"organization_id" db:"organization_id"` // 組織ID
	Name           string     `json:"name" db:"name"`                       // 倉庫名
	Capacity       float64    `json:"capacity" db:"capacity"`               // 最大収容量（グラム）
	BaseUnit       WeightUnit `json:"base_unit" db:"base_unit"`             // 表示単位
	RowCount       int        `json:"row_count" db:"row_count"`             // 列数
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`           // 作成日時
}

// LotSourceType discriminates how an inventory lot came to exist
// 在庫ロットの由来を判別
type LotSourceType string

const (
	LotSourcePurchase         LotSourceType = "purchase"          // 仕入
	LotSourceProduction       LotSourceType = "production"        // 生産
	LotSourceManualAdjustment LotSourceType = "manual_adjustment" // 手動調整
)

// LotSource is the provenance of a lot: a purchase, a production run, or
// a manual adjustment. Only the id matching Type is meaningful.
// ロットの由来。Typeに対応するIDのみ有効
type LotSource struct {
	Type            LotSourceType `json:"type" db:"source_type"`                           // 由来タイプ
	PurchaseID      string        `json:"purchase_id,omitempty" db:"source_purchase_id"`   // 仕入ID
	ProductionRunID string        `json:"production_run_id,omitempty" db:"source_run_id"`  // 生産ランID
}

// PurchaseSource builds a purchase-sourced provenance
// 仕入由来の出所を構築
func PurchaseSource(purchaseID string) LotSource {
	return LotSource{Type: LotSourcePurchase, PurchaseID: purchaseID}
}

// ProductionSource builds a production-sourced provenance
// 生産由来の出所を構築
func ProductionSource(runID string) LotSource {
	return LotSource{Type: LotSourceProduction, ProductionRunID: runID}
}

// ManualAdjustmentSource builds a manual-adjustment provenance
// 手動調整由来の出所を構築
func ManualAdjustmentSource() LotSource {
	return LotSource{Type: LotSourceManualAdjustment}
}

// InventoryLot is a discrete, independently tracked quantity of a product.
// The lot number is unique within an organization, case-sensitive.
// Quantity is always canonical grams and never goes below zero.
// 組織内で一意なロット番号を持つ在庫ロット。数量は常にグラム、負値にはならない
type InventoryLot struct {
	ID                  string            `json:"id" db:"id"`                                     // ロットID
	OrganizationID      string            `json:"organization_id" db:"organization_id"`           // 組織ID
	ProductID           string            `json:"product_id" db:"product_id"`                     // 商品ID
	WarehouseID         string            `json:"warehouse_id" db:"warehouse_id"`                 // 倉庫ID
	LotNumber           string            `json:"lot_number" db:"lot_number"`                     // ロット番号
	Quantity            float64           `json:"quantity" db:"quantity"`                         // 数量（グラム）
	VehicleInfo         string            `json:"vehicle_info" db:"vehicle_info"`                 // 車両情報（仕入ロットのみ）
	CreationDate        time.Time         `json:"creation_date" db:"creation_date"`               // 作成日
	QualityFactorValues map[string]string `json:"quality_factor_values" db:"quality_factor_values"` // 品質係数値
	Source              LotSource         `json:"source"`                                         // 由来
}

// Active reports whether the lot still holds quantity. Lots with zero
// quantity are retained for audit but excluded from capacity accounting.
// ロットが数量を保持しているかを返す。数量ゼロのロットは監査用に保持される
func (l *InventoryLot) Active() bool {
	return l.Quantity > 0
}

// PurchaseStatus is the lifecycle state of a purchase order
// 仕入注文のライフサイクル状態
type PurchaseStatus string

const (
	PurchaseStatusOrdered  PurchaseStatus = "ordered"  // 発注済み
	PurchaseStatusReceived PurchaseStatus = "received" // 入荷済み
)

// Purchase represents a purchase order. It transitions to Received
// exactly once, by the receiving operation that creates its lot.
// 仕入注文を表現。入荷操作により一度だけReceivedに遷移する
type Purchase struct {
	ID             string         `json:"id" db:"id"`                           // 仕入ID
	OrganizationID string         `json:"organization_id" db:"organization_id"` // 組織ID
	SupplierID     *string        `json:"supplier_id" db:"supplier_id"`         // 仕入先ID
	OrderDate      time.Time      `json:"order_date" db:"order_date"`           // 発注日
	Status         PurchaseStatus `json:"status" db:"status"`                   // ステータス
}

// ProductionRun is a single transformation event consuming one input lot
// 一つの入力ロットを消費する単一の加工イベント
type ProductionRun struct {
	ID               string    `json:"id" db:"id"`                             // 生産ランID
	OrganizationID   string    `json:"organization_id" db:"organization_id"`   // 組織ID
	RunDate          time.Time `json:"run_date" db:"run_date"`                 // 生産日
	InputLotID       string    `json:"input_lot_id" db:"input_lot_id"`         // 入力ロットID
	QuantityConsumed float64   `json:"quantity_consumed" db:"quantity_consumed"` // 消費数量（グラム）
	Notes            string    `json:"notes" db:"notes"`                       // 備考
}

// ProductionOutput records one output batch of a production run
// 生産ランの一つの出力バッチを記録
type ProductionOutput struct {
	ID               string  `json:"id" db:"id"`                               // 出力ID
	ProductionRunID  string  `json:"production_run_id" db:"production_run_id"` // 生産ランID
	ProductID        string  `json:"product_id" db:"product_id"`               // 商品ID
	QuantityProduced float64 `json:"quantity_produced" db:"quantity_produced"` // 生産数量（グラム）
	InventoryLotID   string  `json:"inventory_lot_id" db:"inventory_lot_id"`   // 生成されたロットID
}

// LotQuality is one measured quality attribute of a production output
// 生産出力の一つの品質測定値
type LotQuality struct {
	ID                 string `json:"id" db:"id"`                                     // 品質記録ID
	ProductionOutputID string `json:"production_output_id" db:"production_output_id"` // 出力ID
	QualityFactorID    string `json:"quality_factor_id" db:"quality_factor_id"`       // 品質係数ID
	Value              string `json:"value" db:"value"`                               // 測定値
}

// DispatchStatus is the lifecycle state of a dispatch
// 出荷のライフサイクル状態
type DispatchStatus string

const (
	DispatchStatusShipped DispatchStatus = "shipped" // 出荷済み
)

// Dispatch is a sale event that decrements one or more lots
// 一つ以上のロットを減算する販売イベント
type Dispatch struct {
	ID             string         `json:"id" db:"id"`                           // 出荷ID
	OrganizationID string         `json:"organization_id" db:"organization_id"` // 組織ID
	CustomerID     *string        `json:"customer_id" db:"customer_id"`         // 顧客ID
	DispatchDate   time.Time      `json:"dispatch_date" db:"dispatch_date"`     // 出荷日
	Status         DispatchStatus `json:"status" db:"status"`                   // ステータス
}

// DispatchLineItem references one lot and the quantity taken from it
// 一つのロットと出荷数量を参照
type DispatchLineItem struct {
	ID                 string  `json:"id" db:"id"`                                   // 明細ID
	DispatchID         string  `json:"dispatch_id" db:"dispatch_id"`                 // 出荷ID
	InventoryLotID     string  `json:"inventory_lot_id" db:"inventory_lot_id"`       // ロットID
	QuantityDispatched float64 `json:"quantity_dispatched" db:"quantity_dispatched"` // 出荷数量（グラム）
}

// ActivityType classifies a quantity-changing event in the journal
// 台帳の数量変更イベントを分類
type ActivityType string

const (
	ActivityReception     ActivityType = "reception"      // 入荷
	ActivityProductionIn  ActivityType = "production_in"  // 生産入庫
	ActivityProductionOut ActivityType = "production_out" // 生産消費
	ActivityDispatch      ActivityType = "dispatch"       // 出荷
	ActivityAdjustment    ActivityType = "adjustment"     // 調整
)

// ActivityLogEntry is one append-only journal record. Entries are never
// mutated or deleted; per lot, the sum of QuantityChange always equals
// the lot's current quantity.
// 追記専用の台帳レコード。更新・削除されない。ロット毎の変更量合計は常に現在数量と一致する
type ActivityLogEntry struct {
	ID             string       `json:"id" db:"id"`                           // エントリID
	OrganizationID string       `json:"organization_id" db:"organization_id"` // 組織ID
	InventoryLotID string       `json:"inventory_lot_id" db:"inventory_lot_id"` // ロットID
	Type           ActivityType `json:"type" db:"type"`                       // イベントタイプ
	QuantityChange float64      `json:"quantity_change" db:"quantity_change"` // 符号付き変更量（グラム）
	RelatedID      string       `json:"related_id" db:"related_id"`           // 原因となった仕入/ラン/出荷/編集のID
	Timestamp      time.Time    `json:"timestamp" db:"timestamp"`             // 記録日時
}

// ProductOutputDefinition declares a legal input→output product edge.
// Exposed for UI filtering; production mutations do not enforce it.
// 入力→出力商品の組み合わせ定義。UIの絞り込み用で、生産登録時には強制されない
type ProductOutputDefinition struct {
	ID              string `json:"id" db:"id"`                             // 定義ID
	OrganizationID  string `json:"organization_id" db:"organization_id"`   // 組織ID
	InputProductID  string `json:"input_product_id" db:"input_product_id"` // 入力商品ID
	OutputProductID string `json:"output_product_id" db:"output_product_id"` // 出力商品ID
}

// DailyMovement is one row of the per-day net movement report
// 日次移動レポートの一行
type DailyMovement struct {
	Date       string  `json:"date" db:"date"`             // 日付 (YYYY-MM-DD)
	Received   float64 `json:"received" db:"received"`     // 入荷・生産入庫量（グラム）
	Dispatched float64 `json:"dispatched" db:"dispatched"` // 出荷量（グラム）
}

// NewID generates a new entity ID
// 新しいエンティティIDを生成
func NewID() string {
	return uuid.New().String()
}

// NewLotNumber generates a lot number for production outputs created
// without an explicit one.
// ロット番号未指定の生産出力向けにロット番号を生成
func NewLotNumber() string {
	return "PR-" + uuid.New().String()[:8]
}
