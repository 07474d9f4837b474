package ledger

import (
	"context"

	"go.uber.org/zap"
)

// RegisterProduct validates and stores a product definition. Missing IDs
// and timestamps are filled in.
// 商品定義を検証して保存する。IDとタイムスタンプは未設定なら補完される
func (l *Ledger) RegisterProduct(ctx context.Context, product *Product) error {
	if err := ValidateProduct(product); err != nil {
		return err
	}
	if product.ID == "" {
		product.ID = NewID()
	}
	now := l.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateProduct(ctx, product); err != nil {
			return NewStorageError("create_product", "商品作成に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("商品登録完了",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
	)
	return nil
}

// RegisterWarehouse validates and stores a warehouse definition
// 倉庫定義を検証して保存
func (l *Ledger) RegisterWarehouse(ctx context.Context, warehouse *Warehouse) error {
	if err := ValidateWarehouse(warehouse); err != nil {
		return err
	}
	if warehouse.ID == "" {
		warehouse.ID = NewID()
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = l.now()
	}

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateWarehouse(ctx, warehouse); err != nil {
			return NewStorageError("create_warehouse", "倉庫作成に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("倉庫登録完了",
		zap.String("warehouse_id", warehouse.ID),
		zap.String("name", warehouse.Name),
	)
	return nil
}

// DefineOutputProduct declares a legal input to output product edge.
// Both products must belong to the organization.
// 入力商品から出力商品への組み合わせ定義を登録する。両商品は同一組織に属する必要がある
func (l *Ledger) DefineOutputProduct(ctx context.Context, organizationID, inputProductID, outputProductID string) (*ProductOutputDefinition, error) {
	if err := ValidateOrganizationID(organizationID); err != nil {
		return nil, err
	}

	def := &ProductOutputDefinition{
		ID:              NewID(),
		OrganizationID:  organizationID,
		InputProductID:  inputProductID,
		OutputProductID: outputProductID,
	}

	err := l.storage.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := requireProductInOrg(ctx, tx, inputProductID, organizationID); err != nil {
			return err
		}
		if _, err := requireProductInOrg(ctx, tx, outputProductID, organizationID); err != nil {
			return err
		}
		if err := tx.CreateOutputDefinition(ctx, def); err != nil {
			return NewStorageError("create_output_definition", "出力定義作成に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("出力定義登録完了",
		zap.String("definition_id", def.ID),
		zap.String("input_product_id", inputProductID),
		zap.String("output_product_id", outputProductID),
	)
	return def, nil
}
