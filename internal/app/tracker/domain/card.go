package domain

import "fmt"

// Theme 卡片的顯示樣式
type Theme string

const (
	Theme1 Theme = "theme-1"
	Theme2 Theme = "theme-2"
	Theme3 Theme = "theme-3"
	Theme4 Theme = "theme-4"

	// DefaultTheme 未指定樣式時使用
	DefaultTheme = Theme1
)

// Themes 所有可用樣式
var Themes = []Theme{Theme1, Theme2, Theme3, Theme4}

// DefaultBillDay 舊資料沒有帳單日時使用
const DefaultBillDay = 20

// MaxUsed 單張卡片 used 的上限，超過時拒絕消費
const MaxUsed Money = 100 * MaxMoney

// Card 信用卡
//
// Used 與 Available 只能透過 Balance Engine (ApplyExpense / ApplyPayment / Rebalance) 變更，
// 任何時間點都滿足 Available == Limit - Used 且 Used >= 0
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Bank      string `json:"bank"`
	Last4     string `json:"last4"`
	Theme     Theme  `json:"theme"`
	Limit     Money  `json:"limit"`
	BillDay   int    `json:"billDay"`
	Used      Money  `json:"used"`
	Available Money  `json:"available"`
}

// CardSpec 建立信用卡所需的資料 (不含 id / used / available)
type CardSpec struct {
	Name    string `validate:"required"`
	Bank    string `validate:"required"`
	Last4   string `validate:"len=4"`
	Limit   Money  `validate:"gt=0,lte=1000000000000000"`
	BillDay int    `validate:"min=1,max=31"`
	Theme   Theme  `validate:"omitempty,oneof=theme-1 theme-2 theme-3 theme-4"`
}

// NewCard 依照 spec 建立一張新卡，used = 0, available = limit
func NewCard(id string, spec CardSpec) Card {
	theme := spec.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	card := Card{
		ID:      id,
		Name:    spec.Name,
		Bank:    spec.Bank,
		Last4:   spec.Last4,
		Theme:   theme,
		Limit:   spec.Limit,
		BillDay: spec.BillDay,
	}
	card.setUsed(0)
	return card
}

// CheckApply 檢查交易套用後 used 是否仍在 MaxUsed 之內，呼叫 Apply 前使用
func (c *Card) CheckApply(typ TransactionType, amount Money) error {
	if typ == TransactionTypeExpense && amount > MaxUsed-c.Used {
		return fmt.Errorf("%w: expense of %s would push card %s past %s", ErrInvalidInput, amount, c.ID, MaxUsed)
	}
	return nil
}

// ApplyExpense 消費：used 增加，可以超過額度 (超刷)，上限由 CheckApply 把關
func (c *Card) ApplyExpense(amount Money) {
	c.setUsed(c.Used + amount)
}

// ApplyPayment 還款或結清：used 減少，最低為 0
func (c *Card) ApplyPayment(amount Money) {
	c.setUsed(c.Used - amount)
}

// Apply 依交易類型套用到餘額
func (c *Card) Apply(typ TransactionType, amount Money) {
	switch typ {
	case TransactionTypeExpense:
		c.ApplyExpense(amount)
	case TransactionTypePayment:
		c.ApplyPayment(amount)
	}
}

// Rebalance 重新正規化外部載入的資料 (快照、儲存層)
func (c *Card) Rebalance() {
	c.setUsed(c.Used)
}

// EffectiveBillDay 回傳用於計算帳單週期的帳單日
func (c *Card) EffectiveBillDay() int {
	if c.BillDay < 1 || c.BillDay > 31 {
		return DefaultBillDay
	}
	return c.BillDay
}

// setUsed 是唯一寫入 Used / Available 的地方
// 負數一律夾到 0，Available 每次都由 Limit - Used 重新計算
func (c *Card) setUsed(used Money) {
	if used < 0 {
		used = 0
	}
	c.Used = used
	c.Available = c.Limit - used
}
