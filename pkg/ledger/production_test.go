package ledger_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/kakoGoFramework/pkg/ledger"
)

func TestCreateProductionRun_MultiOutput(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	run, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{
				ProductID:           f.finished.ID,
				WarehouseID:         f.wh.ID,
				LotNumber:           "LOT-OUT-1",
				QuantityProduced:    1800,
				QualityFactorValues: map[string]string{"grade": "A"},
			},
			{
				ProductID:        f.finished.ID,
				WarehouseID:      f.wh.ID,
				LotNumber:        "LOT-OUT-2",
				QuantityProduced: 1700,
			},
		},
		Notes: "テストバッチ",
	})
	assert.NoError(t, err)
	assert.Equal(t, 4000.0, run.QuantityConsumed)

	// 入力ロットは消費分だけ減る
	got, err := f.ledger.GetLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, 6000.0, got.Quantity)

	inputHistory, err := f.ledger.HistoryForLot(f.ctx, input.ID)
	require.NoError(t, err)
	require.Len(t, inputHistory, 2)
	assert.Equal(t, ledger.ActivityProductionOut, inputHistory[0].Type)
	assert.Equal(t, -4000.0, inputHistory[0].QuantityChange)
	assert.Equal(t, run.ID, inputHistory[0].RelatedID)

	// 出力ロットは生産由来で作成され、それぞれ入庫エントリを持つ
	outputs, err := f.ledger.ActiveLotsForProduct(f.ctx, f.org, f.finished.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	for _, out := range outputs {
		assert.Equal(t, ledger.LotSourceProduction, out.Source.Type)
		assert.Equal(t, run.ID, out.Source.ProductionRunID)

		history, err := f.ledger.HistoryForLot(f.ctx, out.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, ledger.ActivityProductionIn, history[0].Type)
		assert.Equal(t, out.Quantity, history[0].QuantityChange)
	}
}

func TestCreateProductionRun_InsufficientInput(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 1000)

	_, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 1500,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT", QuantityProduced: 1000},
		},
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientQuantity)

	got, err := f.ledger.GetLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got.Quantity)
}

func TestCreateProductionRun_AtomicOnOutputFailure(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	// 2番目の出力が入力ロットと同じ番号で失敗する。1番目の出力を含む
	// 全変更が巻き戻される
	_, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT-1", QuantityProduced: 1800},
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-IN", QuantityProduced: 1700},
		},
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateLotNumber)

	got, err := f.ledger.GetLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, 10_000.0, got.Quantity)

	history, err := f.ledger.HistoryForLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	outputs, err := f.ledger.ActiveLotsForProduct(f.ctx, f.org, f.finished.ID)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestCreateProductionRun_DuplicateNumberWithinBatch(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	_, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT", QuantityProduced: 1800},
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT", QuantityProduced: 1700},
		},
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateLotNumber)
}

func TestCreateProductionRun_AutoLotNumber(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	_, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, QuantityProduced: 3000},
		},
	})
	assert.NoError(t, err)

	outputs, err := f.ledger.ActiveLotsForProduct(f.ctx, f.org, f.finished.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.True(t, strings.HasPrefix(outputs[0].LotNumber, "PR-"))
}

func TestProductionOutputsNotValidatedAgainstDefinitions(t *testing.T) {
	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	// finishedはrawの出力として定義されていないが、生産登録は
	// 定義と照合しないため成功する
	defs, err := f.ledger.OutputProductsFor(f.ctx, f.org, f.raw.ID)
	require.NoError(t, err)
	require.Empty(t, defs)

	_, err = f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
		OrganizationID:   f.org,
		InputLotID:       input.ID,
		QuantityConsumed: 4000,
		Outputs: []ledger.ProductionOutputInput{
			{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-OUT", QuantityProduced: 3000},
		},
	})
	assert.NoError(t, err)
}

// editFixture creates one run with one output for the edit tests
// 編集テスト用に出力一件の生産ランを作成
func editFixture(t *testing.T) (*fixture, *ledger.InventoryLot, *ledger.ProductionRun, *ledger.InventoryLot) {
	t.Helper()

	f := newFixture(t)
	input := f.receiveLot(t, "LOT-IN", 10_000)

	run, err := f.ledger.CreateProductionRun(f.ctx, ledger.CreateProductionRunInput{
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
	require.Len(t, outputs, 1)

	return f, input, run, &outputs[0]
}

// mustOutputID finds the production output row belonging to a run and lot
// ランとロットに対応する生産出力行IDを解決
func (f *fixture) mustOutputID(t *testing.T, runID, lotID string) string {
	t.Helper()

	outputs, err := f.ledger.OutputsForRun(f.ctx, runID)
	require.NoError(t, err)
	for _, output := range outputs {
		if output.InventoryLotID == lotID {
			return output.ID
		}
	}
	t.Fatalf("生産出力が見つかりません: %s", lotID)
	return ""
}

func TestEditProductionOutputEntry(t *testing.T) {
	f, input, run, outputLot := editFixture(t)

	err := f.ledger.EditProductionOutputEntry(f.ctx, ledger.EditProductionOutputInput{
		RunID:            run.ID,
		OutputID:         f.mustOutputID(t, run.ID, outputLot.ID),
		QuantityConsumed: 5000,
		QuantityProduced: 3500,
		LotNumber:        "LOT-OUT-FIXED",
		WarehouseID:      f.wh.ID,
	})
	assert.NoError(t, err)

	// 入力: 10000 - 5000 = 5000
	gotInput, err := f.ledger.GetLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, gotInput.Quantity)

	gotOutput, err := f.ledger.GetLot(f.ctx, outputLot.ID)
	require.NoError(t, err)
	assert.Equal(t, 3500.0, gotOutput.Quantity)
	assert.Equal(t, "LOT-OUT-FIXED", gotOutput.LotNumber)

	// 両側に差分の調整エントリが追記される
	inputHistory, err := f.ledger.HistoryForLot(f.ctx, input.ID)
	require.NoError(t, err)
	require.Len(t, inputHistory, 3)
	assert.Equal(t, ledger.ActivityAdjustment, inputHistory[0].Type)
	assert.Equal(t, -1000.0, inputHistory[0].QuantityChange)

	outputHistory, err := f.ledger.HistoryForLot(f.ctx, outputLot.ID)
	require.NoError(t, err)
	require.Len(t, outputHistory, 2)
	assert.Equal(t, ledger.ActivityAdjustment, outputHistory[0].Type)
	assert.Equal(t, 500.0, outputHistory[0].QuantityChange)

	f.assertJournalBalance(t, input.ID)
	f.assertJournalBalance(t, outputLot.ID)
}

func TestEditProductionOutputEntry_BeyondAvailableInput(t *testing.T) {
	f, input, run, outputLot := editFixture(t)

	// ランを取り消した場合の利用可能量は 6000 + 4000 = 10000。
	// それを超える消費への訂正は拒否される
	err := f.ledger.EditProductionOutputEntry(f.ctx, ledger.EditProductionOutputInput{
		RunID:            run.ID,
		OutputID:         f.mustOutputID(t, run.ID, outputLot.ID),
		QuantityConsumed: 10_001,
		QuantityProduced: 3000,
		LotNumber:        "LOT-OUT",
		WarehouseID:      f.wh.ID,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientQuantity)

	got, err := f.ledger.GetLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, 6000.0, got.Quantity)
}

func TestAddOutputsToProductionRun(t *testing.T) {
	f, input, run, _ := editFixture(t)

	err := f.ledger.AddOutputsToProductionRun(f.ctx, run.ID, []ledger.ProductionOutputInput{
		{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-EXTRA", QuantityProduced: 200},
	})
	assert.NoError(t, err)

	// 入力側には影響しない
	gotInput, err := f.ledger.GetLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, 6000.0, gotInput.Quantity)

	outputs, err := f.ledger.ActiveLotsForProduct(f.ctx, f.org, f.finished.ID)
	require.NoError(t, err)
	assert.Len(t, outputs, 2)
}

func TestAddOutputsToProductionRun_RequiresLotNumber(t *testing.T) {
	f, _, run, _ := editFixture(t)

	// 追加経路では自動採番されず、番号必須となる
	err := f.ledger.AddOutputsToProductionRun(f.ctx, run.ID, []ledger.ProductionOutputInput{
		{ProductID: f.finished.ID, WarehouseID: f.wh.ID, QuantityProduced: 200},
	})
	assert.True(t, ledger.IsValidationError(err))
}

func TestAddOutputsToProductionRun_DuplicateLotNumber(t *testing.T) {
	f, _, run, outputLot := editFixture(t)

	err := f.ledger.AddOutputsToProductionRun(f.ctx, run.ID, []ledger.ProductionOutputInput{
		{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: outputLot.LotNumber, QuantityProduced: 200},
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateLotNumber)

	outputs, err := f.ledger.OutputsForRun(f.ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, outputs, 1)
}

// 消費数量が変わらない編集では入力側に調整エントリが付かない
func TestEditProductionOutputEntry_UnchangedConsumed(t *testing.T) {
	f, input, run, outputLot := editFixture(t)

	err := f.ledger.EditProductionOutputEntry(f.ctx, ledger.EditProductionOutputInput{
		RunID:            run.ID,
		OutputID:         f.mustOutputID(t, run.ID, outputLot.ID),
		QuantityConsumed: 4000,
		QuantityProduced: 3200,
		LotNumber:        "LOT-OUT",
		WarehouseID:      f.wh.ID,
	})
	assert.NoError(t, err)

	inputHistory, err := f.ledger.HistoryForLot(f.ctx, input.ID)
	require.NoError(t, err)
	assert.Len(t, inputHistory, 2)

	outputHistory, err := f.ledger.HistoryForLot(f.ctx, outputLot.ID)
	require.NoError(t, err)
	require.Len(t, outputHistory, 2)
	assert.Equal(t, ledger.ActivityAdjustment, outputHistory[0].Type)
	assert.Equal(t, 200.0, outputHistory[0].QuantityChange)

	f.assertJournalBalance(t, outputLot.ID)
}

func TestAddOutputsToProductionRun_RunNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.ledger.AddOutputsToProductionRun(f.ctx, "missing-run", []ledger.ProductionOutputInput{
		{ProductID: f.finished.ID, WarehouseID: f.wh.ID, LotNumber: "LOT-X", QuantityProduced: 200},
	})
	assert.ErrorIs(t, err, ledger.ErrRunNotFound)
}
