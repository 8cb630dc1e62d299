package domain

import "time"

// TransactionType 交易類型
type TransactionType string

const (
	// 消費，增加 used
	TransactionTypeExpense TransactionType = "Expense"
	// 還款，減少 used
	TransactionTypePayment TransactionType = "Payment"
)

// Status 交易狀態，只能由 Unpaid 變為 Paid
type Status string

const (
	StatusUnpaid Status = "Unpaid"
	StatusPaid   Status = "Paid"
)

// Category 消費分類
type Category string

const (
	CategoryShopping  Category = "Shopping"
	CategoryFood      Category = "Food"
	CategoryTravel    Category = "Travel"
	CategoryEMI       Category = "EMI"
	CategoryOnline    Category = "Online"
	CategoryUtilities Category = "Utilities"
	CategoryOther     Category = "Other"
)

// Categories 所有可用分類 (依顯示順序)
var Categories = []Category{
	CategoryShopping,
	CategoryFood,
	CategoryTravel,
	CategoryEMI,
	CategoryOnline,
	CategoryUtilities,
	CategoryOther,
}

// Transaction 一筆掛在某張卡上的消費或還款
type Transaction struct {
	ID          string          `json:"id"`
	CardID      string          `json:"cardId"`
	SpentBy     string          `json:"spentBy"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Amount      Money           `json:"amount"`
	Date        time.Time       `json:"date"`
	Type        TransactionType `json:"type"`
	Status      Status          `json:"status"`
}

// TransactionSpec 新增交易所需的資料，Date 為零值時使用目前時間
type TransactionSpec struct {
	CardID      string          `validate:"required"`
	SpentBy     string
	Description string
	Category    Category        `validate:"required,oneof=Shopping Food Travel EMI Online Utilities Other"`
	Amount      Money           `validate:"gt=0,lte=1000000000000000"`
	Type        TransactionType `validate:"required,oneof=Expense Payment"`
	Status      Status          `validate:"required,oneof=Unpaid Paid"`
	Date        time.Time
}

// NewTransaction 依照 spec 建立交易
func NewTransaction(id string, spec TransactionSpec, now time.Time) Transaction {
	date := spec.Date
	if date.IsZero() {
		date = now
	}
	return Transaction{
		ID:          id,
		CardID:      spec.CardID,
		SpentBy:     spec.SpentBy,
		Description: spec.Description,
		Category:    spec.Category,
		Amount:      spec.Amount,
		Date:        date,
		Type:        spec.Type,
		Status:      spec.Status,
	}
}

// IsSettled 是否已結清
func (t *Transaction) IsSettled() bool {
	return t.Status == StatusPaid
}

// Settle 將 Unpaid 轉為 Paid，回傳狀態是否真的有改變
func (t *Transaction) Settle() bool {
	if t.Status != StatusUnpaid {
		return false
	}
	t.Status = StatusPaid
	return true
}
