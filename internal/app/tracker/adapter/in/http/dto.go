package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
)

// 金額在 JSON 中可以是字串或數字，輸出一律為兩位小數字串
type addCardRequest struct {
	Name    string          `json:"name"`
	Bank    string          `json:"bank"`
	Last4   string          `json:"last4"`
	Limit   decimal.Decimal `json:"limit"`
	BillDay int             `json:"billDay"`
	Theme   string          `json:"theme"`
}

func (r addCardRequest) toSpec() (domain.CardSpec, error) {
	limit, err := domain.MoneyFromDecimal(r.Limit)
	if err != nil {
		return domain.CardSpec{}, err
	}
	return domain.CardSpec{
		Name:    r.Name,
		Bank:    r.Bank,
		Last4:   r.Last4,
		Limit:   limit,
		BillDay: r.BillDay,
		Theme:   domain.Theme(r.Theme),
	}, nil
}

type addTransactionRequest struct {
	CardID      string          `json:"cardId"`
	SpentBy     string          `json:"spentBy"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Date        *time.Time      `json:"date"`
}

func (r addTransactionRequest) toSpec() (domain.TransactionSpec, error) {
	amount, err := domain.MoneyFromDecimal(r.Amount)
	if err != nil {
		return domain.TransactionSpec{}, err
	}
	spec := domain.TransactionSpec{
		CardID:      r.CardID,
		SpentBy:     r.SpentBy,
		Description: r.Description,
		Category:    domain.Category(r.Category),
		Amount:      amount,
		Type:        domain.TransactionType(r.Type),
		Status:      domain.Status(r.Status),
	}
	if spec.Type == "" {
		spec.Type = domain.TransactionTypeExpense
	}
	if spec.Status == "" {
		spec.Status = domain.StatusUnpaid
	}
	if r.Date != nil {
		spec.Date = *r.Date
	}
	return spec, nil
}

type cardResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Bank      string `json:"bank"`
	Last4     string `json:"last4"`
	Theme     string `json:"theme"`
	Limit     string `json:"limit"`
	BillDay   int    `json:"billDay"`
	Used      string `json:"used"`
	Available string `json:"available"`
}

func newCardResponse(c domain.Card) cardResponse {
	return cardResponse{
		ID:        c.ID,
		Name:      c.Name,
		Bank:      c.Bank,
		Last4:     c.Last4,
		Theme:     string(c.Theme),
		Limit:     c.Limit.String(),
		BillDay:   c.BillDay,
		Used:      c.Used.String(),
		Available: c.Available.String(),
	}
}

type transactionResponse struct {
	ID          string    `json:"id"`
	CardID      string    `json:"cardId"`
	SpentBy     string    `json:"spentBy"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
}

func newTransactionResponse(t domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		CardID:      t.CardID,
		SpentBy:     t.SpentBy,
		Description: t.Description,
		Category:    string(t.Category),
		Amount:      t.Amount.String(),
		Date:        t.Date,
		Type:        string(t.Type),
		Status:      string(t.Status),
	}
}

func newTransactionResponses(trans []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(trans))
	for _, t := range trans {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

type overviewResponse struct {
	Card        cardResponse `json:"card"`
	BillDate    string       `json:"billDate"`
	DueDate     string       `json:"dueDate"`
	Utilization string       `json:"utilization"`
	Unpaid      string       `json:"unpaid"`
}

func newOverviewResponse(o usecase.CardOverview) overviewResponse {
	return overviewResponse{
		Card:        newCardResponse(o.Card),
		BillDate:    o.Cycle.BillDate.Format(dateLayout),
		DueDate:     o.Cycle.DueDate.Format(dateLayout),
		Utilization: o.Utilization.StringFixed(1),
		Unpaid:      o.Unpaid.String(),
	}
}

type summaryResponse struct {
	CardCount        int                   `json:"cardCount"`
	TotalLimit       string                `json:"totalLimit"`
	TotalOutstanding string                `json:"totalOutstanding"`
	Utilization      string                `json:"utilization"`
	Recent           []transactionResponse `json:"recent"`
}

func newSummaryResponse(s usecase.Summary) summaryResponse {
	return summaryResponse{
		CardCount:        s.CardCount,
		TotalLimit:       s.TotalLimit.String(),
		TotalOutstanding: s.TotalOutstanding.String(),
		Utilization:      s.Utilization.StringFixed(1),
		Recent:           newTransactionResponses(s.Recent),
	}
}
