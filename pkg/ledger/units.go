package ledger

import "math"

// WeightUnit is a user-facing weight unit. All quantities are stored in
// canonical grams regardless of display unit.
// ユーザー向け重量単位。内部数量は常にグラムで保持される
type WeightUnit string

const (
	UnitGram     WeightUnit = "g"   // グラム
	UnitKilogram WeightUnit = "kg"  // キログラム
	UnitTon      WeightUnit = "ton" // トン
	UnitPound    WeightUnit = "lb"  // ポンド
	UnitOunce    WeightUnit = "oz"  // オンス
)

// 固定の換算係数（単位→グラム）
var unitFactors = map[WeightUnit]float64{
	UnitGram:     1,
	UnitKilogram: 1000,
	UnitTon:      1e6,
	UnitPound:    453.592,
	UnitOunce:    28.3495,
}

// ToCanonical converts a user-facing value to canonical grams.
// NaN input yields 0 instead of propagating.
// ユーザー向けの値をグラムに変換。NaNは伝播させず0を返す
func ToCanonical(value float64, unit WeightUnit) float64 {
	if math.IsNaN(value) {
		return 0
	}
	factor, ok := unitFactors[unit]
	if !ok {
		return value
	}
	return value * factor
}

// FromCanonical converts canonical grams back to the given display unit.
// NaN input yields 0 instead of propagating.
// グラムを指定の表示単位に戻す。NaNは伝播させず0を返す
func FromCanonical(grams float64, unit WeightUnit) float64 {
	if math.IsNaN(grams) {
		return 0
	}
	factor, ok := unitFactors[unit]
	if !ok {
		return grams
	}
	return grams / factor
}
