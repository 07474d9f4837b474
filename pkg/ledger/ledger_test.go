package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/kakoGoFramework/pkg/ledger"
	"github.com/nemonet1337/kakoGoFramework/pkg/ledger/storage"
)

// fixture bundles a ledger over in-memory storage with registered
// master data
// テスト用のマスタデータ登録済み台帳一式
type fixture struct {
	ctx      context.Context
	ledger   *ledger.Ledger
	store    *storage.MemoryStorage
	org      string
	raw      *ledger.Product
	finished *ledger.Product
	wh       *ledger.Warehouse
	smallWh  *ledger.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storage.NewMemoryStorage()
	l := ledger.NewLedger(store, nil)
	ctx := context.Background()
	org := "org-test"

	raw := &ledger.Product{
		OrganizationID: org,
		Name:           "原料",
		Type:           ledger.ProductTypeRawMaterial,
		BaseUnit:       ledger.UnitKilogram,
	}
	require.NoError(t, l.RegisterProduct(ctx, raw))

	finished := &ledger.Product{
		OrganizationID: org,
		Name:           "完成品",
		Type:           ledger.ProductTypeFinishedGood,
		BaseUnit:       ledger.UnitKilogram,
	}
	require.NoError(t, l.RegisterProduct(ctx, finished))

	wh := &ledger.Warehouse{
		OrganizationID: org,
		Name:           "メイン倉庫",
		Capacity:       1_000_000,
		BaseUnit:       ledger.UnitGram,
	}
	require.NoError(t, l.RegisterWarehouse(ctx, wh))

	smallWh := &ledger.Warehouse{
		OrganizationID: org,
		Name:           "小倉庫",
		Capacity:       1000,
		BaseUnit:       ledger.UnitGram,
	}
	require.NoError(t, l.RegisterWarehouse(ctx, smallWh))

	return &fixture{
		ctx:      ctx,
		ledger:   l,
		store:    store,
		org:      org,
		raw:      raw,
		finished: finished,
		wh:       wh,
		smallWh:  smallWh,
	}
}

// receiveLot creates an ordered purchase and receives it into a lot
// 発注済み仕入を作成して入荷ロット化
func (f *fixture) receiveLot(t *testing.T, lotNumber string, quantity float64) *ledger.InventoryLot {
	t.Helper()

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)

	lot, err := f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   lotNumber,
		Quantity:    quantity,
		VehicleInfo: "トラックA",
	})
	require.NoError(t, err)
	return lot
}

// assertJournalBalance verifies that the journal entries of a lot sum to
// its current quantity
// ロットの台帳エントリ合計が現在数量と一致することを検証
func (f *fixture) assertJournalBalance(t *testing.T, lotID string) {
	t.Helper()

	lot, err := f.ledger.GetLot(f.ctx, lotID)
	require.NoError(t, err)

	entries, err := f.ledger.HistoryForLot(f.ctx, lotID)
	require.NoError(t, err)

	var sum float64
	for _, entry := range entries {
		sum += entry.QuantityChange
	}
	assert.InDelta(t, lot.Quantity, sum, 1e-9)
}

func TestReceivePurchase(t *testing.T) {
	f := newFixture(t)

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, ledger.PurchaseStatusOrdered, purchase.Status)

	lot, err := f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-001",
		Quantity:    5000,
		VehicleInfo: "トラックA",
	})
	assert.NoError(t, err)
	assert.Equal(t, 5000.0, lot.Quantity)
	assert.Equal(t, ledger.LotSourcePurchase, lot.Source.Type)
	assert.Equal(t, purchase.ID, lot.Source.PurchaseID)

	entries, err := f.ledger.HistoryForLot(f.ctx, lot.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, ledger.ActivityReception, entries[0].Type)
	assert.Equal(t, 5000.0, entries[0].QuantityChange)
	assert.Equal(t, purchase.ID, entries[0].RelatedID)
}

func TestReceivePurchase_Twice(t *testing.T) {
	f := newFixture(t)

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)

	in := ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-001",
		Quantity:    100,
	}
	_, err = f.ledger.ReceivePurchase(f.ctx, in)
	require.NoError(t, err)

	in.LotNumber = "LOT-002"
	_, err = f.ledger.ReceivePurchase(f.ctx, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidOperation)
}

func TestReceivePurchase_DuplicateLotNumber(t *testing.T) {
	f := newFixture(t)

	f.receiveLot(t, "LOT-001", 100)

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)

	_, err = f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-001",
		Quantity:    200,
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateLotNumber)

	// 失敗した入荷はステータスを変えない
	got, err := f.ledger.GetLot(f.ctx, f.mustLotID(t, "LOT-001"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Quantity)
}

// mustLotID resolves a lot number to its ID via the warehouse listing
// 倉庫一覧からロット番号をIDに解決
func (f *fixture) mustLotID(t *testing.T, lotNumber string) string {
	t.Helper()

	lots, err := f.ledger.ActiveLotsForWarehouse(f.ctx, f.wh.ID)
	require.NoError(t, err)
	for _, lot := range lots {
		if lot.LotNumber == lotNumber {
			return lot.ID
		}
	}
	t.Fatalf("ロットが見つかりません: %s", lotNumber)
	return ""
}

func TestReceivePurchase_LotNumberCaseSensitive(t *testing.T) {
	f := newFixture(t)

	f.receiveLot(t, "lot-a", 100)

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)

	// 大文字小文字が異なる番号は別ロットとして受け入れられる
	_, err = f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-A",
		Quantity:    100,
	})
	assert.NoError(t, err)
}

func TestWarehouseCapacityNotCheckedOnCreate(t *testing.T) {
	f := newFixture(t)

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)

	// 小倉庫の容量1000を大きく超える入荷だが、作成経路では容量検証が
	// 行われないため成功する
	lot, err := f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: f.smallWh.ID,
		LotNumber:   "LOT-OVER",
		Quantity:    50_000,
	})
	assert.NoError(t, err)
	assert.Equal(t, 50_000.0, lot.Quantity)
}

func TestEditPurchaseEntry(t *testing.T) {
	f := newFixture(t)
	lot := f.receiveLot(t, "LOT-001", 1000)

	supplierID := "supplier-2"
	err := f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
		LotID:       lot.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-001-FIXED",
		Quantity:    800,
		VehicleInfo: "トラックB",
		SupplierID:  &supplierID,
	})
	assert.NoError(t, err)

	got, err := f.ledger.GetLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, "LOT-001-FIXED", got.LotNumber)
	assert.Equal(t, 800.0, got.Quantity)
	assert.Equal(t, "トラックB", got.VehicleInfo)

	// 調整エントリは差分で記録される
	entries, err := f.ledger.HistoryForLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, ledger.ActivityAdjustment, entries[0].Type)
	assert.Equal(t, -200.0, entries[0].QuantityChange)

	f.assertJournalBalance(t, lot.ID)
}

func TestEditPurchaseEntry_SameQuantityNoAdjustment(t *testing.T) {
	f := newFixture(t)
	lot := f.receiveLot(t, "LOT-001", 1000)

	err := f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
		LotID:       lot.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-001",
		Quantity:    1000,
		VehicleInfo: "トラックB",
	})
	assert.NoError(t, err)

	entries, err := f.ledger.HistoryForLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, ledger.ActivityReception, entries[0].Type)
}

func TestEditPurchaseEntry_CapacityEnforced(t *testing.T) {
	f := newFixture(t)
	lot := f.receiveLot(t, "LOT-001", 500)

	// 編集経路では容量が検証される
	err := f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
		LotID:       lot.ID,
		WarehouseID: f.smallWh.ID,
		LotNumber:   "LOT-001",
		Quantity:    5000,
		VehicleInfo: "トラックA",
	})
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	// 失敗した編集はロットを変えない
	got, err := f.ledger.GetLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Quantity)
	assert.Equal(t, f.wh.ID, got.WarehouseID)
}

func TestEditPurchaseEntry_CapacityExcludesSelf(t *testing.T) {
	f := newFixture(t)

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)
	lot, err := f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: f.smallWh.ID,
		LotNumber:   "LOT-FULL",
		Quantity:    1000,
	})
	require.NoError(t, err)

	// ロット自身を除外して検証するため、同数量への編集は容量一杯でも
	// 何度でも成功する
	for i := 0; i < 3; i++ {
		err := f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
			LotID:       lot.ID,
			WarehouseID: f.smallWh.ID,
			LotNumber:   "LOT-FULL",
			Quantity:    1000,
			VehicleInfo: "トラックA",
		})
		assert.NoError(t, err)
	}
}

func TestEditPurchaseEntry_DuplicateLotNumber(t *testing.T) {
	f := newFixture(t)
	f.receiveLot(t, "LOT-001", 100)
	lot := f.receiveLot(t, "LOT-002", 100)

	// 他ロットの番号への変更は拒否される
	err := f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
		LotID:       lot.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-001",
		Quantity:    100,
		VehicleInfo: "トラックA",
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateLotNumber)

	// 自身の現番号はそのまま使える
	err = f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
		LotID:       lot.ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-002",
		Quantity:    100,
		VehicleInfo: "トラックA",
	})
	assert.NoError(t, err)
}

func TestEditPurchaseEntry_NonPurchaseLot(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 1000)

	run, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 400,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT", QuantityProduced: 300},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, run)

	outputs, err := f.ledger.ActiveLotsForProduct(f.ctx, f.org, f.finished.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	// 生産由来ロットは仕入編集経路では訂正できない
	err = f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
		LotID:       outputs[0].ID,
		WarehouseID: f.wh.ID,
		LotNumber:   "LOT-OUT",
		Quantity:    300,
		VehicleInfo: "トラックA",
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidOperation)
}

func TestAccessDeniedAcrossOrganizations(t *testing.T) {
	f := newFixture(t)

	otherWh := &ledger.Warehouse{
		OrganizationID: "org-other",
		Name:           "他社倉庫",
		Capacity:       1_000_000,
		BaseUnit:       ledger.UnitGram,
	}
	require.NoError(t, f.ledger.RegisterWarehouse(f.ctx, otherWh))

	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)

	_, err = f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: otherWh.ID,
		LotNumber:   "LOT-001",
		Quantity:    100,
	})
	assert.ErrorIs(t, err, ledger.ErrAccessDenied)
}

func TestQuantityConservation(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	_, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT-1", QuantityProduced: 1800},
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT-2", QuantityProduced: 1700},
		},
	})
	require.NoError(t, err)

	outputs, err := f.ledger.ActiveLotsForProduct(f.ctx, f.org, f.finished.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 2)

	_, err = f.ledger.CreateDispatch(f.ctx, ledger.CreateDispatchInput{
		OrganizationID: f.org,
		Items: []ledger.DispatchItemInput{
			{LotID: outputs[0].ID, Quantity: 500},
		},
	})
	require.NoError(t, err)

	// どのロットでも台帳エントリの合計は現在数量と一致する
	f.assertJournalBalance(t, input.ID)
	f.assertJournalBalance(t, outputs[0].ID)
	f.assertJournalBalance(t, outputs[1].ID)
}

func TestUsedWarehouseCapacity(t *testing.T) {
	f := newFixture(t)
	lotA := f.receiveLot(t, "LOT-A", 300)
	f.receiveLot(t, "LOT-B", 200)

	used, err := f.ledger.UsedWarehouseCapacity(f.ctx, f.wh.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, 500.0, used)

	used, err = f.ledger.UsedWarehouseCapacity(f.ctx, f.wh.ID, lotA.ID)
	assert.NoError(t, err)
	assert.Equal(t, 200.0, used)
}

func TestZeroQuantityLotExcludedFromCapacity(t *testing.T) {
	f := newFixture(t)
	lot := f.receiveLot(t, "LOT-A", 300)

	_, err := f.ledger.CreateDispatch(f.ctx, ledger.CreateDispatchInput{
		OrganizationID: f.org,
		Items: []ledger.DispatchItemInput{
			{LotID: lot.ID, Quantity: 300},
		},
	})
	require.NoError(t, err)

	// 数量ゼロのロットは監査用に残るが容量と一覧からは外れる
	got, err := f.ledger.GetLot(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Quantity)
	assert.False(t, got.Active())

	used, err := f.ledger.UsedWarehouseCapacity(f.ctx, f.wh.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, used)

	lots, err := f.ledger.ActiveLotsForWarehouse(f.ctx, f.wh.ID)
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestNetMovementByDay(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	_, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT", QuantityProduced: 3000},
		},
	})
	require.NoError(t, err)

	outputs, err := f.ledger.ActiveLotsForProduct(f.ctx, f.org, f.finished.ID)
	require.NoError(t, err)

	_, err = f.ledger.CreateDispatch(f.ctx, ledger.CreateDispatchInput{
		OrganizationID: f.org,
		Items: []ledger.DispatchItemInput{
			{LotID: outputs[0].ID, Quantity: 1200},
		},
	})
	require.NoError(t, err)

	now := time.Now()
	movements, err := f.ledger.NetMovementByDay(f.ctx, f.org, now.Add(-24*time.Hour), now.Add(24*time.Hour))
	assert.NoError(t, err)
	require.Len(t, movements, 1)

	// 入荷10000 + 生産入庫3000。生産消費と調整は含まれない
	assert.Equal(t, now.Format("2006-01-02"), movements[0].Date)
	assert.Equal(t, 13_000.0, movements[0].Received)
	assert.Equal(t, 1200.0, movements[0].Dispatched)
}

func TestNetMovementByDay_InvalidRange(t *testing.T) {
	f := newFixture(t)

	now := time.Now()
	_, err := f.ledger.NetMovementByDay(f.ctx, f.org, now, now.Add(-time.Hour))
	assert.True(t, ledger.IsValidationError(err))
}

func TestOutputProductsFor(t *testing.T) {
	f := newFixture(t)

	def, err := f.ledger.DefineOutputProduct(f.ctx, f.org, f.raw.ID, f.finished.ID)
	assert.NoError(t, err)

	defs, err := f.ledger.OutputProductsFor(f.ctx, f.org, f.raw.ID)
	assert.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, def.ID, defs[0].ID)
	assert.Equal(t, f.finished.ID, defs[0].OutputProductID)

	// 逆方向には定義されていない
	defs, err = f.ledger.OutputProductsFor(f.ctx, f.org, f.finished.ID)
	assert.NoError(t, err)
	assert.Empty(t, defs)
}

// 失敗した編集の前後で使用容量が変わらないことを検証
func TestUsedWarehouseCapacityStableAcrossFailedEdit(t *testing.T) {
	f := newFixture(t)
	lot := f.receiveLot(t, "LOT-A", 800)

	before, err := f.ledger.UsedWarehouseCapacity(f.ctx, f.smallWh.ID, "")
	require.NoError(t, err)

	// 小倉庫の容量1000を超える移動は失敗する
	err = f.ledger.EditPurchaseEntry(f.ctx, ledger.EditPurchaseEntryInput{
		LotID:       lot.ID,
		WarehouseID: f.smallWh.ID,
		LotNumber:   "LOT-A",
		Quantity:    1200,
		VehicleInfo: "トラックA",
	})
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	after, err := f.ledger.UsedWarehouseCapacity(f.ctx, f.smallWh.ID, "")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	used, err := f.ledger.UsedWarehouseCapacity(f.ctx, f.wh.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 800.0, used)
}

// 仕入→生産→出荷→訂正の一連の流れを通しで検証
func TestEndToEndLotLifecycle(t *testing.T) {
	f := newFixture(t)

	wh := &ledger.Warehouse{
		OrganizationID: f.org,
		Name:           "第二倉庫",
		Capacity:       10_000,
		BaseUnit:       ledger.UnitGram,
	}
	require.NoError(t, f.ledger.RegisterWarehouse(f.ctx, wh))

	// 原料5000gをL1として入荷
	purchase, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)
	l1, err := f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  purchase.ID,
		ProductID:   f.raw.ID,
		WarehouseID: wh.ID,
		LotNumber:   "L1",
		Quantity:    5000,
	})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, l1.Quantity)

	// 同番号での再入荷は失敗し、仕入は発注済みのまま残る
	second, err := f.ledger.CreatePurchase(f.ctx, f.org, nil, time.Now())
	require.NoError(t, err)
	_, err = f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  second.ID,
		ProductID:   f.raw.ID,
		WarehouseID: wh.ID,
		LotNumber:   "L1",
		Quantity:    1000,
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateLotNumber)
	_, err = f.ledger.ReceivePurchase(f.ctx, ledger.ReceivePurchaseInput{
		PurchaseID:  second.ID,
		ProductID:   f.raw.ID,
		WarehouseID: wh.ID,
		LotNumber:   "L1B",
		Quantity:    1000,
	})
	assert.NoError(t, err)

	// L1から2000g消費して1800gをL2として生産
	run, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       l1.ID,
		QuantityConsumed: 2000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: wh.ID, LotNumber: "L2", QuantityProduced: 1800},
		},
	})
	require.NoError(t, err)

	gotL1, err := f.ledger.GetLot(f.ctx, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, gotL1.Quantity)

	// 残量3000に対する4000消費は失敗する
	_, err = f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       l1.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: wh.ID, LotNumber: "L3", QuantityProduced: 3600},
		},
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientQuantity)

	// L2から1000g出荷
	outputs, err := f.ledger.OutputsForRun(f.ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	l2ID := outputs[0].InventoryLotID

	customer := "customer-c"
	_, err = f.ledger.CreateDispatch(f.ctx, ledger.CreateDispatchInput{
		OrganizationID: f.org,
		CustomerID:     &customer,
		Items:          []ledger.DispatchItemInput{{LotID: l2ID, Quantity: 1000}},
	})
	require.NoError(t, err)

	gotL2, err := f.ledger.GetLot(f.ctx, l2ID)
	require.NoError(t, err)
	assert.Equal(t, 800.0, gotL2.Quantity)

	// 生産数量を200g上方訂正（消費数量は不変）。出荷後の残量に
	// 差分だけが反映される
	err = f.ledger.EditProductionOutputEntry(f.ctx, ledger.EditProductionOutputInput{
		RunID:            run.ID,
		OutputID:         outputs[0].ID,
		QuantityConsumed: 2000,
		QuantityProduced: 2000,
		LotNumber:        "L2",
		WarehouseID:      wh.ID,
	})
	assert.NoError(t, err)

	gotL2, err = f.ledger.GetLot(f.ctx, l2ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, gotL2.Quantity)

	l2History, err := f.ledger.HistoryForLot(f.ctx, l2ID)
	require.NoError(t, err)
	require.Len(t, l2History, 3)
	assert.Equal(t, ledger.ActivityAdjustment, l2History[0].Type)
	assert.Equal(t, 200.0, l2History[0].QuantityChange)

	// 入力側は差分ゼロのため調整エントリが付かない
	l1History, err := f.ledger.HistoryForLot(f.ctx, l1.ID)
	require.NoError(t, err)
	assert.Len(t, l1History, 2)

	f.assertJournalBalance(t, l1.ID)
	f.assertJournalBalance(t, l2ID)
}
