package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 金額使用 int64 儲存最小貨幣單位，精度：小數點後 2 位
const (
	CurrencyDecimals = 2
	CurrencyScale    = 100
)

// MaxMoney 單筆金額與額度的上限 (10 兆，最小單位為 10^15)
// 與 validate tag 的 lte 參數一致
const MaxMoney Money = 1_000_000_000_000_000

// Money 以最小貨幣單位表示的金額，避免浮點數累加誤差
type Money int64

// ParseMoney 將十進位字串 (如 "1200.50") 轉為 Money
//
// 參數:
//
//	s: 十進位金額字串
//
// 回傳:
//
//	Money: 金額
//	error: 格式錯誤或小數位數超過 CurrencyDecimals 時回傳 ErrInvalidInput
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, s)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal 將 decimal 轉為 Money，不接受超過兩位小數或絕對值超過 MaxMoney
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(CurrencyDecimals)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: amount %s has more than %d decimal places", ErrInvalidInput, d.String(), CurrencyDecimals)
	}
	// IntPart 超出 int64 時結果未定義，必須先檢查範圍
	if minor.Abs().GreaterThan(decimal.NewFromInt(int64(MaxMoney))) {
		return 0, fmt.Errorf("%w: amount %s exceeds %s", ErrInvalidInput, d.String(), MaxMoney)
	}
	return Money(minor.IntPart()), nil
}

// Decimal 轉回 decimal.Decimal
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -CurrencyDecimals)
}

// String 固定輸出兩位小數，如 "48800.00"
func (m Money) String() string {
	return m.Decimal().StringFixed(CurrencyDecimals)
}

// Percent 計算 part / whole * 100，四捨五入到小數點後一位；whole 為 0 時回傳 0
func Percent(part, whole Money) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return part.Decimal().
		Div(whole.Decimal()).
		Mul(decimal.NewFromInt(100)).
		Round(1)
}
