package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DispatchItemInput references one lot and the quantity to take from it
// 出荷する一つのロットと数量を参照
type DispatchItemInput struct {
	LotID    string  `json:"lot_id"`   // ロットID
	Quantity float64 `json:"quantity"` // 出荷数量（グラム）
}

// CreateDispatchInput carries the arguments of CreateDispatch
// CreateDispatchの引数を保持
type CreateDispatchInput struct {
	OrganizationID string              `json:"organization_id"` // 組織ID
	CustomerID     *string             `json:"customer_id"`     // 顧客ID
	DispatchDate   time.Time           `json:"dispatch_date"`   // 出荷日（ゼロ値なら現在時刻）
	Items          []DispatchItemInput `json:"items"`           // 明細一覧
}

// CreateDispatch records a sale against one or more lots. Each line item
// decrements its lot and journals a dispatch entry; the whole call is
// one transaction, so a failing item voids the earlier ones too.
// 一つ以上のロットに対する販売を記録する。呼び出し全体が一つの
// トランザクションであり、途中の明細の失敗は先行明細も無効にする
func (l *Ledger) CreateDispatch(ctx context.Context, in CreateDispatchInput) (*Dispatch, error) {
	if err := ValidateOrganizationID(in.OrganizationID); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, NewValidationError("items", "出荷明細が指定されていません", "[]")
	}
	for i, item := range in.Items {
		if err := ValidatePositiveQuantity(fmt.Sprintf("items[%d].quantity", i), item.Quantity); err != nil {
			return nil, err
		}
	}

	dispatchDate := in.DispatchDate
	if dispatchDate.IsZero() {
		dispatchDate = l.now()
	}

	dispatch := &Dispatch{
		ID:             NewID(),
		OrganizationID: in.OrganizationID,
		CustomerID:     in.CustomerID,
		DispatchDate:   dispatchDate,
		Status:         DispatchStatusShipped,
	}

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateDispatch(ctx, dispatch); err != nil {
			return NewStorageError("create_dispatch", "出荷作成に失敗しました", err)
		}

		for _, item := range in.Items {
			lot, err := tx.GetLot(ctx, item.LotID)
			if err != nil {
				return err
			}
			if lot.OrganizationID != in.OrganizationID {
				return ErrAccessDenied
			}
			if item.Quantity > lot.Quantity {
				return ErrInsufficientQuantity
			}

			line := &DispatchLineItem{
				ID:                 NewID(),
				DispatchID:         dispatch.ID,
				InventoryLotID:     lot.ID,
				QuantityDispatched: item.Quantity,
			}
			if err := tx.CreateDispatchLineItem(ctx, line); err != nil {
				return NewStorageError("create_dispatch_line_item", "出荷明細作成に失敗しました", err)
			}
			if err := adjustLotQuantity(ctx, tx, lot, -item.Quantity); err != nil {
				return err
			}
			if err := l.journal(ctx, tx, lot, ActivityDispatch, -item.Quantity, dispatch.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("出荷作成完了",
		zap.String("dispatch_id", dispatch.ID),
		zap.String("organization_id", in.OrganizationID),
		zap.Int("item_count", len(in.Items)),
	)
	return dispatch, nil
}
