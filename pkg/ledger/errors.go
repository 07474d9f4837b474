package ledger

import (
	"errors"
	"fmt"
)

// Common ledger errors
// 共通の台帳エラー定義

var (
	// ErrPurchaseNotFound is returned when a purchase doesn't exist
	// 仕入が存在しない場合のエラー
	ErrPurchaseNotFound = errors.New("仕入が見つかりません")

	// ErrLotNotFound is returned when an inventory lot doesn't exist
	// 在庫ロットが存在しない場合のエラー
	ErrLotNotFound = errors.New("在庫ロットが見つかりません")

	// ErrProductNotFound is returned when a product doesn't exist
	// 商品が存在しない場合のエラー
	ErrProductNotFound = errors.New("商品が見つかりません")

	// ErrWarehouseNotFound is returned when a warehouse doesn't exist
	// 倉庫が存在しない場合のエラー
	ErrWarehouseNotFound = errors.New("倉庫が見つかりません")

	// ErrRunNotFound is returned when a production run doesn't exist
	// 生産ランが存在しない場合のエラー
	ErrRunNotFound = errors.New("生産ランが見つかりません")

	// ErrOutputNotFound is returned when a production output doesn't exist
	// 生産出力が存在しない場合のエラー
	ErrOutputNotFound = errors.New("生産出力が見つかりません")

	// ErrDispatchNotFound is returned when a dispatch doesn't exist
	// 出荷が存在しない場合のエラー
	ErrDispatchNotFound = errors.New("出荷が見つかりません")

	// ErrAccessDenied is returned when an entity belongs to another organization
	// エンティティが別組織に属する場合のエラー
	ErrAccessDenied = errors.New("別の組織のデータへのアクセスは許可されていません")

	// ErrDuplicateLotNumber is returned when a lot number already exists in the organization
	// 組織内にロット番号が既に存在する場合のエラー
	ErrDuplicateLotNumber = errors.New("ロット番号は組織内で既に使用されています")

	// ErrInsufficientQuantity is returned when consumption exceeds the lot's quantity
	// 消費量がロット数量を超える場合のエラー
	ErrInsufficientQuantity = errors.New("ロットの数量が不足しています")

	// ErrNegativeQuantity is returned when an adjustment would drive quantity below zero
	// 調整により数量が負になる場合のエラー
	ErrNegativeQuantity = errors.New("ロット数量を負にすることはできません")

	// ErrCapacityExceeded is returned when an edit would exceed warehouse capacity
	// 編集により倉庫容量を超える場合のエラー
	ErrCapacityExceeded = errors.New("倉庫の収容量を超えています")

	// ErrInvalidOperation is returned when an operation is semantically disallowed
	// 操作が意味的に許可されない場合のエラー
	ErrInvalidOperation = errors.New("この操作は許可されていません")
)

// ValidationError represents a malformed-input error with details
// 詳細付きの入力バリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// IsValidationError reports whether err is a ValidationError
// errがValidationErrorかを返す
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError represents a storage layer failure
// ストレージ層の障害を表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
