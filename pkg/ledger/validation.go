package ledger

import (
	"fmt"
	"strings"
)

// ValidateOrganizationID 組織IDをバリデーション
func ValidateOrganizationID(organizationID string) error {
	if organizationID == "" {
		return NewValidationError("organization_id", "組織IDが空です", organizationID)
	}
	if len(organizationID) > 255 {
		return NewValidationError("organization_id", "組織IDが長すぎます", organizationID)
	}
	return nil
}

// ValidateLotNumber ロット番号をバリデーション（大文字小文字は区別される）
func ValidateLotNumber(lotNumber string) error {
	if lotNumber == "" {
		return NewValidationError("lot_number", "ロット番号が空です", lotNumber)
	}
	if len(lotNumber) > 255 {
		return NewValidationError("lot_number", "ロット番号が長すぎます", lotNumber)
	}
	return nil
}

// ValidatePositiveQuantity 数量が正であることをバリデーション
func ValidatePositiveQuantity(field string, quantity float64) error {
	if quantity <= 0 {
		return NewValidationError(field, "数量は正の値である必要があります", fmt.Sprintf("%g", quantity))
	}
	return nil
}

// ValidateVehicleInfo 車両情報をバリデーション
func ValidateVehicleInfo(vehicleInfo string) error {
	if strings.TrimSpace(vehicleInfo) == "" {
		return NewValidationError("vehicle_info", "車両情報が空です", vehicleInfo)
	}
	if len(vehicleInfo) > 500 {
		return NewValidationError("vehicle_info", "車両情報が長すぎます", vehicleInfo)
	}
	return nil
}

// ValidateProductType 商品タイプをバリデーション
func ValidateProductType(productType ProductType) error {
	switch productType {
	case ProductTypeRawMaterial, ProductTypeFinishedGood, ProductTypeByProduct:
		return nil
	}
	return NewValidationError("type", "無効な商品タイプです", string(productType))
}

// ValidateWeightUnit 重量単位をバリデーション
func ValidateWeightUnit(unit WeightUnit) error {
	if _, ok := unitFactors[unit]; !ok {
		return NewValidationError("base_unit", "無効な重量単位です", string(unit))
	}
	return nil
}

// ValidateActivityType イベントタイプをバリデーション
func ValidateActivityType(activityType ActivityType) error {
	switch activityType {
	case ActivityReception, ActivityProductionIn, ActivityProductionOut, ActivityDispatch, ActivityAdjustment:
		return nil
	}
	return NewValidationError("type", "無効なイベントタイプです", string(activityType))
}

// ValidateWarehouse 倉庫全体をバリデーション
func ValidateWarehouse(warehouse *Warehouse) error {
	if warehouse == nil {
		return NewValidationError("warehouse", "倉庫が指定されていません", "nil")
	}
	if err := ValidateOrganizationID(warehouse.OrganizationID); err != nil {
		return err
	}
	if strings.TrimSpace(warehouse.Name) == "" {
		return NewValidationError("name", "倉庫名が空です", warehouse.Name)
	}
	if warehouse.Capacity < 0 {
		return NewValidationError("capacity", "収容量は0以上である必要があります", fmt.Sprintf("%g", warehouse.Capacity))
	}
	return ValidateWeightUnit(warehouse.BaseUnit)
}

// ValidateProduct 商品全体をバリデーション
func ValidateProduct(product *Product) error {
	if product == nil {
		return NewValidationError("product", "商品が指定されていません", "nil")
	}
	if err := ValidateOrganizationID(product.OrganizationID); err != nil {
		return err
	}
	if strings.TrimSpace(product.Name) == "" {
		return NewValidationError("name", "商品名が空です", product.Name)
	}
	if err := ValidateProductType(product.Type); err != nil {
		return err
	}
	return ValidateWeightUnit(product.BaseUnit)
}
