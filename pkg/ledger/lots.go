package ledger

import (
	"context"

	"go.uber.org/zap"
)

// adjustLotQuantity applies a signed delta to a lot's quantity and
// persists it. The quantity must never go below zero.
// ロット数量に符号付きの差分を適用して保存する。数量は負にならない
func adjustLotQuantity(ctx context.Context, tx Tx, lot *InventoryLot, delta float64) error {
	result := lot.Quantity + delta
	if result < 0 {
		return ErrNegativeQuantity
	}
	lot.Quantity = result
	if err := tx.UpdateLot(ctx, lot); err != nil {
		return NewStorageError("update_lot", "ロット更新に失敗しました", err)
	}
	return nil
}

// journal appends one activity entry for a lot. Entries are the system
// of record for lot history; they are never mutated afterwards.
// ロットの台帳エントリを一件追記する。エントリは後から変更されない
func (l *Ledger) journal(ctx context.Context, tx Tx, lot *InventoryLot, activityType ActivityType, quantityChange float64, relatedID string) error {
	entry := &ActivityLogEntry{
		ID:             NewID(),
		OrganizationID: lot.OrganizationID,
		InventoryLotID: lot.ID,
		Type:           activityType,
		QuantityChange: quantityChange,
		RelatedID:      relatedID,
		Timestamp:      l.now(),
	}
	if err := tx.AppendActivity(ctx, entry); err != nil {
		return NewStorageError("append_activity", "台帳エントリ追記に失敗しました", err)
	}
	l.logger.Debug("台帳エントリ追記",
		zap.String("lot_id", lot.ID),
		zap.String("type", string(activityType)),
		zap.Float64("quantity_change", quantityChange),
		zap.String("related_id", relatedID),
	)
	return nil
}

// checkCapacityForEdit re-validates warehouse capacity for an edit that
// moves or resizes an existing lot. The lot itself is excluded from the
// used-capacity sum. Only the edit paths perform this check; the
// primary creation paths do not.
// 既存ロットの編集に対して倉庫容量を再検証する。編集経路のみで呼ばれる
func checkCapacityForEdit(ctx context.Context, tx Tx, warehouse *Warehouse, excludeLotID string, newQuantity float64) error {
	used, err := tx.UsedWarehouseCapacity(ctx, warehouse.ID, excludeLotID)
	if err != nil {
		return NewStorageError("used_warehouse_capacity", "倉庫使用量の取得に失敗しました", err)
	}
	if used+newQuantity > warehouse.Capacity {
		return ErrCapacityExceeded
	}
	return nil
}

// checkLotNumberAvailable verifies that a lot number is not taken by any
// other lot of the organization. Used by the edit paths, which must
// tolerate the lot's own current number; creation paths rely on the
// storage-level insert-if-absent instead.
// 編集経路向けに、自ロットを除いてロット番号の空きを確認する
func checkLotNumberAvailable(ctx context.Context, tx Tx, organizationID, lotNumber, excludeLotID string) error {
	exists, err := tx.LotNumberExists(ctx, organizationID, lotNumber, excludeLotID)
	if err != nil {
		return NewStorageError("lot_number_exists", "ロット番号の確認に失敗しました", err)
	}
	if exists {
		return ErrDuplicateLotNumber
	}
	return nil
}
