package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReceivePurchaseInput carries the arguments of ReceivePurchase
// ReceivePurchaseの引数を保持
type ReceivePurchaseInput struct {
	PurchaseID          string            `json:"purchase_id"`           // 仕入ID
	ProductID           string            `json:"product_id"`            // 商品ID
	WarehouseID         string            `json:"warehouse_id"`          // 倉庫ID
	LotNumber           string            `json:"lot_number"`            // ロット番号
	Quantity            float64           `json:"quantity"`              // 数量（グラム）
	VehicleInfo         string            `json:"vehicle_info"`          // 車両情報
	QualityFactorValues map[string]string `json:"quality_factor_values"` // 品質係数値
}

// EditPurchaseEntryInput carries the arguments of EditPurchaseEntry
// EditPurchaseEntryの引数を保持
type EditPurchaseEntryInput struct {
	LotID       string  `json:"lot_id"`       // ロットID
	WarehouseID string  `json:"warehouse_id"` // 倉庫ID
	LotNumber   string  `json:"lot_number"`   // ロット番号
	Quantity    float64 `json:"quantity"`     // 数量（グラム）
	VehicleInfo string  `json:"vehicle_info"` // 車両情報
	SupplierID  *string `json:"supplier_id"`  // 仕入先ID
}

// CreatePurchase inserts a purchase order with status Ordered. It has
// no inventory effect until received.
// 発注済みステータスで仕入注文を登録する。入荷までは在庫に影響しない
func (l *Ledger) CreatePurchase(ctx context.Context, organizationID string, supplierID *string, orderDate time.Time) (*Purchase, error) {
	if err := ValidateOrganizationID(organizationID); err != nil {
		return nil, err
	}

	purchase := &Purchase{
		ID:             NewID(),
		OrganizationID: organizationID,
		SupplierID:     supplierID,
		OrderDate:      orderDate,
		Status:         PurchaseStatusOrdered,
	}

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreatePurchase(ctx, purchase); err != nil {
			return NewStorageError("create_purchase", "仕入作成に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("仕入作成完了",
		zap.String("purchase_id", purchase.ID),
		zap.String("organization_id", organizationID),
	)
	return purchase, nil
}

// ReceivePurchase turns an ordered purchase into an inventory lot: it
// creates the lot, journals a reception entry and marks the purchase
// Received, all in one transaction. One purchase maps to exactly one
// receiving lot; receiving twice fails.
// 発注済みの仕入を在庫ロット化する。ロット作成・入荷エントリ追記・
// ステータス遷移を一つのトランザクションで行う
func (l *Ledger) ReceivePurchase(ctx context.Context, in ReceivePurchaseInput) (*InventoryLot, error) {
	if err := ValidatePositiveQuantity("quantity", in.Quantity); err != nil {
		return nil, err
	}
	if err := ValidateLotNumber(in.LotNumber); err != nil {
		return nil, err
	}

	var lot *InventoryLot
	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		purchase, err := tx.GetPurchase(ctx, in.PurchaseID)
		if err != nil {
			return err
		}
		if purchase.Status == PurchaseStatusReceived {
			return ErrInvalidOperation
		}
		if _, err := requireProductInOrg(ctx, tx, in.ProductID, purchase.OrganizationID); err != nil {
			return err
		}
		if _, err := requireWarehouseInOrg(ctx, tx, in.WarehouseID, purchase.OrganizationID); err != nil {
			return err
		}

		// ロット番号の一意性はストレージのinsert-if-absentで保証される
		lot = &InventoryLot{
			ID:                  NewID(),
			OrganizationID:      purchase.OrganizationID,
			ProductID:           in.ProductID,
			WarehouseID:         in.WarehouseID,
			LotNumber:           in.LotNumber,
			Quantity:            in.Quantity,
			VehicleInfo:         in.VehicleInfo,
			CreationDate:        l.now(),
			QualityFactorValues: in.QualityFactorValues,
			Source:              PurchaseSource(purchase.ID),
		}
		if err := tx.CreateLot(ctx, lot); err != nil {
			return err
		}

		if err := l.journal(ctx, tx, lot, ActivityReception, in.Quantity, purchase.ID); err != nil {
			return err
		}

		purchase.Status = PurchaseStatusReceived
		if err := tx.UpdatePurchase(ctx, purchase); err != nil {
			return NewStorageError("update_purchase", "仕入更新に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("仕入入荷完了",
		zap.String("purchase_id", in.PurchaseID),
		zap.String("lot_id", lot.ID),
		zap.String("lot_number", in.LotNumber),
		zap.Float64("quantity", in.Quantity),
	)
	return lot, nil
}

// EditPurchaseEntry corrects an already-received purchase entry. The
// target warehouse capacity is re-validated excluding the lot itself,
// and an adjustment entry is journaled only when the quantity actually
// changed.
// 入荷済み仕入エントリを訂正する。数量が変わった場合のみ調整エントリを追記する
func (l *Ledger) EditPurchaseEntry(ctx context.Context, in EditPurchaseEntryInput) error {
	if err := ValidatePositiveQuantity("quantity", in.Quantity); err != nil {
		return err
	}
	if err := ValidateLotNumber(in.LotNumber); err != nil {
		return err
	}
	if err := ValidateVehicleInfo(in.VehicleInfo); err != nil {
		return err
	}

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		lot, err := tx.GetLot(ctx, in.LotID)
		if err != nil {
			return err
		}
		if lot.Source.Type != LotSourcePurchase {
			return ErrInvalidOperation
		}

		if err := checkLotNumberAvailable(ctx, tx, lot.OrganizationID, in.LotNumber, lot.ID); err != nil {
			return err
		}
		warehouse, err := requireWarehouseInOrg(ctx, tx, in.WarehouseID, lot.OrganizationID)
		if err != nil {
			return err
		}
		if err := checkCapacityForEdit(ctx, tx, warehouse, lot.ID, in.Quantity); err != nil {
			return err
		}

		oldQuantity := lot.Quantity
		lot.WarehouseID = in.WarehouseID
		lot.LotNumber = in.LotNumber
		lot.Quantity = in.Quantity
		lot.VehicleInfo = in.VehicleInfo
		if err := tx.UpdateLot(ctx, lot); err != nil {
			return NewStorageError("update_lot", "ロット更新に失敗しました", err)
		}

		purchase, err := tx.GetPurchase(ctx, lot.Source.PurchaseID)
		if err != nil {
			return err
		}
		purchase.SupplierID = in.SupplierID
		if err := tx.UpdatePurchase(ctx, purchase); err != nil {
			return NewStorageError("update_purchase", "仕入更新に失敗しました", err)
		}

		// 数量が変わらない編集は台帳に記録しない
		if delta := in.Quantity - oldQuantity; delta != 0 {
			if err := l.journal(ctx, tx, lot, ActivityAdjustment, delta, purchase.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("仕入エントリ編集完了",
		zap.String("lot_id", in.LotID),
		zap.String("lot_number", in.LotNumber),
		zap.Float64("quantity", in.Quantity),
	)
	return nil
}
