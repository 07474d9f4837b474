package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ProductionOutputInput declares one output batch of a production run
// 生産ランの一つの出力バッチを宣言
type ProductionOutputInput struct {
	ProductID           string            `json:"product_id"`            // 商品ID
	WarehouseID         string            `json:"warehouse_id"`          // 倉庫ID
	LotNumber           string            `json:"lot_number"`            // ロット番号（空なら自動採番）
	QuantityProduced    float64           `json:"quantity_produced"`     // 生産数量（グラム）
	QualityFactorValues map[string]string `json:"quality_factor_values"` // 品質係数値
}

// CreateProductionRunInput carries the arguments of CreateProductionRun
// CreateProductionRunの引数を保持
type CreateProductionRunInput struct {
	OrganizationID   string                  `json:"organization_id"`   // 組織ID
	InputLotID       string                  `json:"input_lot_id"`      // 入力ロットID
	QuantityConsumed float64                 `json:"quantity_consumed"` // 消費数量（グラム）
	Outputs          []ProductionOutputInput `json:"outputs"`           // 出力一覧
	Notes            string                  `json:"notes"`             // 備考
	RunDate          time.Time               `json:"run_date"`          // 生産日（ゼロ値なら現在時刻）
}

// EditProductionOutputInput carries the arguments of EditProductionOutputEntry
// EditProductionOutputEntryの引数を保持
type EditProductionOutputInput struct {
	RunID            string  `json:"run_id"`            // 生産ランID
	OutputID         string  `json:"output_id"`         // 出力ID
	QuantityConsumed float64 `json:"quantity_consumed"` // 消費数量（グラム）
	QuantityProduced float64 `json:"quantity_produced"` // 生産数量（グラム）
	LotNumber        string  `json:"lot_number"`        // ロット番号
	WarehouseID      string  `json:"warehouse_id"`      // 倉庫ID
}

// CreateProductionRun consumes quantity from one input lot and creates
// one output lot per declared output, journaling both sides. All
// outputs are validated before any mutation; the whole call is one
// transaction, so a failure at output N of M leaves no partial state.
// 一つの入力ロットから消費し、宣言された出力毎に出力ロットを作成して
// 両側を台帳に記録する。全出力の検証後にのみ変更を行い、呼び出し全体が
// 一つのトランザクションとなる
func (l *Ledger) CreateProductionRun(ctx context.Context, in CreateProductionRunInput) (*ProductionRun, error) {
	if err := ValidateOrganizationID(in.OrganizationID); err != nil {
		return nil, err
	}
	if err := ValidatePositiveQuantity("quantity_consumed", in.QuantityConsumed); err != nil {
		return nil, err
	}

	runDate := in.RunDate
	if runDate.IsZero() {
		runDate = l.now()
	}

	var run *ProductionRun
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		inputLot, err := tx.GetLot(ctx, in.InputLotID)
		if err != nil {
			return err
		}
		if inputLot.OrganizationID != in.OrganizationID {
			return ErrAccessDenied
		}
		if in.QuantityConsumed > inputLot.Quantity {
			return ErrInsufficientQuantity
		}

		// 変更前に全出力を検証する（途中失敗による部分的な副作用を防ぐ）
		if err := l.validateOutputs(ctx, tx, in.OrganizationID, in.Outputs); err != nil {
			return err
		}

		run = &ProductionRun{
			ID:               NewID(),
			OrganizationID:   in.OrganizationID,
			RunDate:          runDate,
			InputLotID:       inputLot.ID,
			QuantityConsumed: in.QuantityConsumed,
			Notes:            in.Notes,
		}
		if err := tx.CreateProductionRun(ctx, run); err != nil {
			return NewStorageError("create_production_run", "生産ラン作成に失敗しました", err)
		}

		if err := adjustLotQuantity(ctx, tx, inputLot, -in.QuantityConsumed); err != nil {
			return err
		}
		if err := l.journal(ctx, tx, inputLot, ActivityProductionOut, -in.QuantityConsumed, run.ID); err != nil {
			return err
		}

		for _, out := range in.Outputs {
			if err := l.createRunOutput(ctx, tx, run, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("生産ラン作成完了",
		zap.String("run_id", run.ID),
		zap.String("input_lot_id", in.InputLotID),
		zap.Float64("quantity_consumed", in.QuantityConsumed),
		zap.Int("output_count", len(in.Outputs)),
	)
	return run, nil
}

// AddOutputsToProductionRun appends outputs to an existing run without
// touching the input side.
// 入力側に影響を与えずに既存の生産ランへ出力を追加する
func (l *Ledger) AddOutputsToProductionRun(ctx context.Context, runID string, outputs []ProductionOutputInput) error {
	if len(outputs) == 0 {
		return NewValidationError("outputs", "出力が指定されていません", "[]")
	}
	for i, out := range outputs {
		if err := ValidateLotNumber(out.LotNumber); err != nil {
			return NewValidationError("lot_number", "ロット番号が空です", fmt.Sprintf("outputs[%d]", i))
		}
	}

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		run, err := tx.GetProductionRun(ctx, runID)
		if err != nil {
			return err
		}
		if err := l.validateOutputs(ctx, tx, run.OrganizationID, outputs); err != nil {
			return err
		}
		for _, out := range outputs {
			if err := l.createRunOutput(ctx, tx, run, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("生産ラン出力追加完了",
		zap.String("run_id", runID),
		zap.Int("output_count", len(outputs)),
	)
	return nil
}

// OutputsForRun lists the output rows of a production run
// 生産ランの出力行を一覧取得
func (l *Ledger) OutputsForRun(ctx context.Context, runID string) ([]ProductionOutput, error) {
	var outputs []ProductionOutput
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetProductionRun(ctx, runID); err != nil {
			return err
		}
		var err error
		outputs, err = tx.ListProductionOutputs(ctx, runID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outputs, nil
}

// EditProductionOutputEntry amends one run and one of its outputs after
// the fact. The run's consumption is conceptually undone to compute the
// input available before the run, and each side is journaled
// independently, only when its delta is nonzero.
// 生産ランとその出力一件を事後訂正する。各側の差分が非ゼロの場合のみ
// 個別に台帳へ記録する
func (l *Ledger) EditProductionOutputEntry(ctx context.Context, in EditProductionOutputInput) error {
	if err := ValidatePositiveQuantity("quantity_consumed", in.QuantityConsumed); err != nil {
		return err
	}
	if err := ValidatePositiveQuantity("quantity_produced", in.QuantityProduced); err != nil {
		return err
	}
	if err := ValidateLotNumber(in.LotNumber); err != nil {
		return err
	}

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		run, err := tx.GetProductionRun(ctx, in.RunID)
		if err != nil {
			return err
		}
		output, err := tx.GetProductionOutput(ctx, in.OutputID)
		if err != nil {
			return err
		}
		if output.ProductionRunID != run.ID {
			return ErrOutputNotFound
		}
		inputLot, err := tx.GetLot(ctx, run.InputLotID)
		if err != nil {
			return err
		}
		outputLot, err := tx.GetLot(ctx, output.InventoryLotID)
		if err != nil {
			return err
		}

		// ランの効果を概念的に取り消した上で利用可能量を計算する
		availableInputBeforeRun := inputLot.Quantity + run.QuantityConsumed
		if in.QuantityConsumed > availableInputBeforeRun {
			return ErrInsufficientQuantity
		}

		consumedDelta := run.QuantityConsumed - in.QuantityConsumed
		producedDelta := in.QuantityProduced - output.QuantityProduced

		// 出力ロットには生産数量の差分を適用する。ラン後の出荷などで
		// 減った分を上書きしない
		newOutputQuantity := outputLot.Quantity + producedDelta
		if newOutputQuantity < 0 {
			return ErrNegativeQuantity
		}

		warehouse, err := requireWarehouseInOrg(ctx, tx, in.WarehouseID, run.OrganizationID)
		if err != nil {
			return err
		}
		if err := checkLotNumberAvailable(ctx, tx, run.OrganizationID, in.LotNumber, outputLot.ID); err != nil {
			return err
		}
		if err := checkCapacityForEdit(ctx, tx, warehouse, outputLot.ID, newOutputQuantity); err != nil {
			return err
		}

		inputLot.Quantity = availableInputBeforeRun - in.QuantityConsumed
		if err := tx.UpdateLot(ctx, inputLot); err != nil {
			return NewStorageError("update_lot", "入力ロット更新に失敗しました", err)
		}
		run.QuantityConsumed = in.QuantityConsumed
		if err := tx.UpdateProductionRun(ctx, run); err != nil {
			return NewStorageError("update_production_run", "生産ラン更新に失敗しました", err)
		}
		outputLot.WarehouseID = in.WarehouseID
		outputLot.LotNumber = in.LotNumber
		outputLot.Quantity = newOutputQuantity
		if err := tx.UpdateLot(ctx, outputLot); err != nil {
			return NewStorageError("update_lot", "出力ロット更新に失敗しました", err)
		}
		output.QuantityProduced = in.QuantityProduced
		if err := tx.UpdateProductionOutput(ctx, output); err != nil {
			return NewStorageError("update_production_output", "生産出力更新に失敗しました", err)
		}

		// 両側の訂正を個別に記録する。差分ゼロの側は記録しない
		if consumedDelta != 0 {
			if err := l.journal(ctx, tx, inputLot, ActivityAdjustment, consumedDelta, run.ID); err != nil {
				return err
			}
		}
		if producedDelta != 0 {
			if err := l.journal(ctx, tx, outputLot, ActivityAdjustment, producedDelta, run.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("生産出力エントリ編集完了",
		zap.String("run_id", in.RunID),
		zap.String("output_id", in.OutputID),
		zap.Float64("quantity_consumed", in.QuantityConsumed),
		zap.Float64("quantity_produced", in.QuantityProduced),
	)
	return nil
}

// validateOutputs checks every declared output before any mutation:
// positive quantity, product and warehouse in the organization, and lot
// number availability (also within the batch itself). Outputs are
// deliberately not validated against ProductOutputDefinition.
// 変更前に全出力を検証する。ProductOutputDefinitionとの照合は意図的に行わない
func (l *Ledger) validateOutputs(ctx context.Context, tx Tx, organizationID string, outputs []ProductionOutputInput) error {
	seen := make(map[string]bool, len(outputs))
	for i, out := range outputs {
		field := fmt.Sprintf("outputs[%d]", i)
		if err := ValidatePositiveQuantity(field+".quantity_produced", out.QuantityProduced); err != nil {
			return err
		}
		if _, err := requireProductInOrg(ctx, tx, out.ProductID, organizationID); err != nil {
			return err
		}
		if _, err := requireWarehouseInOrg(ctx, tx, out.WarehouseID, organizationID); err != nil {
			return err
		}
		if out.LotNumber == "" {
			continue
		}
		if seen[out.LotNumber] {
			return ErrDuplicateLotNumber
		}
		seen[out.LotNumber] = true
		if err := checkLotNumberAvailable(ctx, tx, organizationID, out.LotNumber, ""); err != nil {
			return err
		}
	}
	return nil
}

// createRunOutput creates one output lot with its journal entry,
// output row and quality rows.
// 出力ロット・台帳エントリ・出力行・品質行を一式作成する
func (l *Ledger) createRunOutput(ctx context.Context, tx Tx, run *ProductionRun, out ProductionOutputInput) error {
	lotNumber := out.LotNumber
	if lotNumber == "" {
		lotNumber = NewLotNumber()
	}

	lot := &InventoryLot{
		ID:                  NewID(),
		OrganizationID:      run.OrganizationID,
		ProductID:           out.ProductID,
		WarehouseID:         out.WarehouseID,
		LotNumber:           lotNumber,
		Quantity:            out.QuantityProduced,
		CreationDate:        l.now(),
		QualityFactorValues: out.QualityFactorValues,
		Source:              ProductionSource(run.ID),
	}
	if err := tx.CreateLot(ctx, lot); err != nil {
		return err
	}
	if err := l.journal(ctx, tx, lot, ActivityProductionIn, out.QuantityProduced, run.ID); err != nil {
		return err
	}

	output := &ProductionOutput{
		ID:               NewID(),
		ProductionRunID:  run.ID,
		ProductID:        out.ProductID,
		QuantityProduced: out.QuantityProduced,
		InventoryLotID:   lot.ID,
	}
	if err := tx.CreateProductionOutput(ctx, output); err != nil {
		return NewStorageError("create_production_output", "生産出力作成に失敗しました", err)
	}

	for factorID, value := range out.QualityFactorValues {
		quality := &LotQuality{
			ID:                 NewID(),
			ProductionOutputID: output.ID,
			QualityFactorID:    factorID,
			Value:              value,
		}
		if err := tx.CreateLotQuality(ctx, quality); err != nil {
			return NewStorageError("create_lot_quality", "品質記録作成に失敗しました", err)
		}
	}
	return nil
}
