package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nemonet1337/kakoGoFramework/pkg/ledger"
)

// MemoryStorage implements the Storage interface in process memory.
// Used by tests and examples. A global mutex serializes transactions
// and a pre-transaction snapshot provides rollback.
// プロセスメモリ上のStorageインターフェース実装。テストと例で使用。
// グローバルミューテックスでトランザクションを直列化し、
// 事前スナップショットでロールバックを提供する
type MemoryStorage struct {
	mu    sync.Mutex
	state *memState
}

var _ ledger.Storage = (*MemoryStorage)(nil)

// memState holds every dataset. Records are stored by value so that a
// clone never aliases live data.
// 全データセットを保持。クローンが実データを共有しないよう値で格納する
type memState struct {
	products   map[string]ledger.Product
	warehouses map[string]ledger.Warehouse
	outputDefs map[string]ledger.ProductOutputDefinition
	lots       map[string]ledger.InventoryLot
	lotNumbers map[string]string // 組織ID+"\x00"+ロット番号 → ロットID
	purchases  map[string]ledger.Purchase
	runs       map[string]ledger.ProductionRun
	outputs    map[string]ledger.ProductionOutput
	qualities  map[string]ledger.LotQuality
	dispatches map[string]ledger.Dispatch
	lineItems  map[string]ledger.DispatchLineItem
	activities []ledger.ActivityLogEntry
}

// NewMemoryStorage creates an empty in-memory storage
// 空のインメモリストレージを作成
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: newMemState()}
}

func newMemState() *memState {
	return &memState{
		products:   make(map[string]ledger.Product),
		warehouses: make(map[string]ledger.Warehouse),
		outputDefs: make(map[string]ledger.ProductOutputDefinition),
		lots:       make(map[string]ledger.InventoryLot),
		lotNumbers: make(map[string]string),
		purchases:  make(map[string]ledger.Purchase),
		runs:       make(map[string]ledger.ProductionRun),
		outputs:    make(map[string]ledger.ProductionOutput),
		qualities:  make(map[string]ledger.LotQuality),
		dispatches: make(map[string]ledger.Dispatch),
		lineItems:  make(map[string]ledger.DispatchLineItem),
	}
}

// clone deep-copies the state, including the nested maps of lots and
// products.
// 状態を深くコピーする
func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.products {
		v.QualityFactorIDs = append([]string(nil), v.QualityFactorIDs...)
		c.products[k] = v
	}
	for k, v := range s.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range s.outputDefs {
		c.outputDefs[k] = v
	}
	for k, v := range s.lots {
		v.QualityFactorValues = cloneStringMap(v.QualityFactorValues)
		c.lots[k] = v
	}
	for k, v := range s.lotNumbers {
		c.lotNumbers[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = v
	}
	for k, v := range s.outputs {
		c.outputs[k] = v
	}
	for k, v := range s.qualities {
		c.qualities[k] = v
	}
	for k, v := range s.dispatches {
		c.dispatches[k] = v
	}
	for k, v := range s.lineItems {
		c.lineItems[k] = v
	}
	c.activities = append([]ledger.ActivityLogEntry(nil), s.activities...)
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func lotNumberKey(organizationID, lotNumber string) string {
	return organizationID + "\x00" + lotNumber
}

// WithinTransaction runs fn under the global lock. On error the state is
// restored from the snapshot taken before fn ran.
// グローバルロック下でfnを実行する。エラー時は実行前のスナップショットに戻す
func (s *MemoryStorage) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &memTx{state: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Ping always succeeds for the in-memory backend
// インメモリバックエンドでは常に成功
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close discards all data
// 全データを破棄
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newMemState()
	return nil
}

// memTx implements the record operations directly on the live state.
// Rollback is handled by the snapshot in WithinTransaction.
// 実状態に対して直接レコード操作を実装する。
// ロールバックはWithinTransactionのスナップショットが担う
type memTx struct {
	state *memState
}

var _ ledger.Tx = (*memTx)(nil)

func (t *memTx) CreateProduct(ctx context.Context, product *ledger.Product) error {
	t.state.products[product.ID] = *product
	return nil
}

func (t *memTx) GetProduct(ctx context.Context, productID string) (*ledger.Product, error) {
	product, ok := t.state.products[productID]
	if !ok {
		return nil, ledger.ErrProductNotFound
	}
	return &product, nil
}

func (t *memTx) CreateWarehouse(ctx context.Context, warehouse *ledger.Warehouse) error {
	t.state.warehouses[warehouse.ID] = *warehouse
	return nil
}

func (t *memTx) GetWarehouse(ctx context.Context, warehouseID string) (*ledger.Warehouse, error) {
	warehouse, ok := t.state.warehouses[warehouseID]
	if !ok {
		return nil, ledger.ErrWarehouseNotFound
	}
	return &warehouse, nil
}

func (t *memTx) CreateOutputDefinition(ctx context.Context, def *ledger.ProductOutputDefinition) error {
	t.state.outputDefs[def.ID] = *def
	return nil
}

func (t *memTx) ListOutputDefinitions(ctx context.Context, organizationID, inputProductID string) ([]ledger.ProductOutputDefinition, error) {
	var defs []ledger.ProductOutputDefinition
	for _, def := range t.state.outputDefs {
		if def.OrganizationID == organizationID && def.InputProductID == inputProductID {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// CreateLot inserts a lot if its number is absent in the organization.
// Check and insert happen under the transaction lock, making the pair
// atomic.
// 組織内にロット番号が存在しない場合のみロットを登録する。
// 確認と登録はトランザクションロック下で原子的に行われる
func (t *memTx) CreateLot(ctx context.Context, lot *ledger.InventoryLot) error {
	key := lotNumberKey(lot.OrganizationID, lot.LotNumber)
	if _, taken := t.state.lotNumbers[key]; taken {
		return ledger.ErrDuplicateLotNumber
	}
	t.state.lotNumbers[key] = lot.ID
	t.state.lots[lot.ID] = *lot
	return nil
}

func (t *memTx) GetLot(ctx context.Context, lotID string) (*ledger.InventoryLot, error) {
	lot, ok := t.state.lots[lotID]
	if !ok {
		return nil, ledger.ErrLotNotFound
	}
	return &lot, nil
}

func (t *memTx) UpdateLot(ctx context.Context, lot *ledger.InventoryLot) error {
	current, ok := t.state.lots[lot.ID]
	if !ok {
		return ledger.ErrLotNotFound
	}
	if current.LotNumber != lot.LotNumber {
		newKey := lotNumberKey(lot.OrganizationID, lot.LotNumber)
		if owner, taken := t.state.lotNumbers[newKey]; taken && owner != lot.ID {
			return ledger.ErrDuplicateLotNumber
		}
		delete(t.state.lotNumbers, lotNumberKey(current.OrganizationID, current.LotNumber))
		t.state.lotNumbers[newKey] = lot.ID
	}
	t.state.lots[lot.ID] = *lot
	return nil
}

func (t *memTx) LotNumberExists(ctx context.Context, organizationID, lotNumber, excludeLotID string) (bool, error) {
	owner, taken := t.state.lotNumbers[lotNumberKey(organizationID, lotNumber)]
	if !taken {
		return false, nil
	}
	return owner != excludeLotID, nil
}

func (t *memTx) ListActiveLotsByWarehouse(ctx context.Context, warehouseID string) ([]ledger.InventoryLot, error) {
	var lots []ledger.InventoryLot
	for _, lot := range t.state.lots {
		if lot.WarehouseID == warehouseID && lot.Quantity > 0 {
			lots = append(lots, lot)
		}
	}
	sortLotsNewestFirst(lots)
	return lots, nil
}

func (t *memTx) ListActiveLotsByProduct(ctx context.Context, organizationID, productID string) ([]ledger.InventoryLot, error) {
	var lots []ledger.InventoryLot
	for _, lot := range t.state.lots {
		if lot.OrganizationID == organizationID && lot.ProductID == productID && lot.Quantity > 0 {
			lots = append(lots, lot)
		}
	}
	sortLotsNewestFirst(lots)
	return lots, nil
}

func sortLotsNewestFirst(lots []ledger.InventoryLot) {
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].CreationDate.Equal(lots[j].CreationDate) {
			return lots[i].CreationDate.After(lots[j].CreationDate)
		}
		return lots[i].ID < lots[j].ID
	})
}

func (t *memTx) UsedWarehouseCapacity(ctx context.Context, warehouseID, excludeLotID string) (float64, error) {
	var used float64
	for _, lot := range t.state.lots {
		if lot.WarehouseID == warehouseID && lot.Quantity > 0 && lot.ID != excludeLotID {
			used += lot.Quantity
		}
	}
	return used, nil
}

func (t *memTx) CreatePurchase(ctx context.Context, purchase *ledger.Purchase) error {
	t.state.purchases[purchase.ID] = *purchase
	return nil
}

func (t *memTx) GetPurchase(ctx context.Context, purchaseID string) (*ledger.Purchase, error) {
	purchase, ok := t.state.purchases[purchaseID]
	if !ok {
		return nil, ledger.ErrPurchaseNotFound
	}
	return &purchase, nil
}

func (t *memTx) UpdatePurchase(ctx context.Context, purchase *ledger.Purchase) error {
	if _, ok := t.state.purchases[purchase.ID]; !ok {
		return ledger.ErrPurchaseNotFound
	}
	t.state.purchases[purchase.ID] = *purchase
	return nil
}

func (t *memTx) CreateProductionRun(ctx context.Context, run *ledger.ProductionRun) error {
	t.state.runs[run.ID] = *run
	return nil
}

func (t *memTx) GetProductionRun(ctx context.Context, runID string) (*ledger.ProductionRun, error) {
	run, ok := t.state.runs[runID]
	if !ok {
		return nil, ledger.ErrRunNotFound
	}
	return &run, nil
}

func (t *memTx) UpdateProductionRun(ctx context.Context, run *ledger.ProductionRun) error {
	if _, ok := t.state.runs[run.ID]; !ok {
		return ledger.ErrRunNotFound
	}
	t.state.runs[run.ID] = *run
	return nil
}

func (t *memTx) CreateProductionOutput(ctx context.Context, output *ledger.ProductionOutput) error {
	t.state.outputs[output.ID] = *output
	return nil
}

func (t *memTx) GetProductionOutput(ctx context.Context, outputID string) (*ledger.ProductionOutput, error) {
	output, ok := t.state.outputs[outputID]
	if !ok {
		return nil, ledger.ErrOutputNotFound
	}
	return &output, nil
}

func (t *memTx) UpdateProductionOutput(ctx context.Context, output *ledger.ProductionOutput) error {
	if _, ok := t.state.outputs[output.ID]; !ok {
		return ledger.ErrOutputNotFound
	}
	t.state.outputs[output.ID] = *output
	return nil
}

func (t *memTx) ListProductionOutputs(ctx context.Context, runID string) ([]ledger.ProductionOutput, error) {
	var outputs []ledger.ProductionOutput
	for _, output := range t.state.outputs {
		if output.ProductionRunID == runID {
			outputs = append(outputs, output)
		}
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ID < outputs[j].ID })
	return outputs, nil
}

func (t *memTx) CreateLotQuality(ctx context.Context, quality *ledger.LotQuality) error {
	t.state.qualities[quality.ID] = *quality
	return nil
}

func (t *memTx) CreateDispatch(ctx context.Context, dispatch *ledger.Dispatch) error {
	t.state.dispatches[dispatch.ID] = *dispatch
	return nil
}

func (t *memTx) CreateDispatchLineItem(ctx context.Context, item *ledger.DispatchLineItem) error {
	t.state.lineItems[item.ID] = *item
	return nil
}

func (t *memTx) AppendActivity(ctx context.Context, entry *ledger.ActivityLogEntry) error {
	t.state.activities = append(t.state.activities, *entry)
	return nil
}

// ActivityForLot returns entries newest first. Entries are appended in
// chronological order, so the slice is walked backwards.
// 台帳エントリを新しい順に返す
func (t *memTx) ActivityForLot(ctx context.Context, lotID string) ([]ledger.ActivityLogEntry, error) {
	var entries []ledger.ActivityLogEntry
	for i := len(t.state.activities) - 1; i >= 0; i-- {
		if t.state.activities[i].InventoryLotID == lotID {
			entries = append(entries, t.state.activities[i])
		}
	}
	return entries, nil
}

func (t *memTx) NetMovementByDay(ctx context.Context, organizationID string, from, to time.Time) ([]ledger.DailyMovement, error) {
	byDay := make(map[string]*ledger.DailyMovement)
	for _, entry := range t.state.activities {
		if entry.OrganizationID != organizationID {
			continue
		}
		if entry.Timestamp.Before(from) || entry.Timestamp.After(to) {
			continue
		}
		day := entry.Timestamp.Format("2006-01-02")
		m, ok := byDay[day]
		if !ok {
			m = &ledger.DailyMovement{Date: day}
			byDay[day] = m
		}
		switch entry.Type {
		case ledger.ActivityReception, ledger.ActivityProductionIn:
			m.Received += entry.QuantityChange
		case ledger.ActivityDispatch:
			m.Dispatched += -entry.QuantityChange
		}
	}

	var movements []ledger.DailyMovement
	for _, m := range byDay {
		movements = append(movements, *m)
	}
	sort.Slice(movements, func(i, j int) bool { return movements[i].Date < movements[j].Date })
	return movements, nil
}
