package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
)

// CardOverview 卡片詳情頁需要的資料
type CardOverview struct {
	Card        domain.Card
	Cycle       domain.BillCycle
	Utilization decimal.Decimal
	Unpaid      domain.Money
}

// Summary 首頁總覽
type Summary struct {
	CardCount        int
	TotalLimit       domain.Money
	TotalOutstanding domain.Money
	Utilization      decimal.Decimal
	Recent           []domain.Transaction
}

// StatusTab 交易列表的狀態分頁
type StatusTab string

const (
	TabUnpaid StatusTab = "unpaid"
	TabPaid   StatusTab = "paid"
	TabAll    StatusTab = "all"
)

// TransactionFilter 交易列表的篩選條件
// Query 以不分大小寫比對 description / spentBy / category，Tab 空白視為 unpaid
type TransactionFilter struct {
	Query string
	Tab   StatusTab
}

// CardOverview 計算卡片的帳單週期與額度使用率
func (s *Store) CardOverview(id string, today time.Time) (CardOverview, error) {
	card, ok := s.Card(id)
	if !ok {
		return CardOverview{}, fmt.Errorf("card %q: %w", id, domain.ErrCardNotFound)
	}
	var unpaid domain.Money
	for _, tran := range s.CardTransactions(id) {
		if tran.Type == domain.TransactionTypeExpense && !tran.IsSettled() {
			unpaid += tran.Amount
		}
	}
	return CardOverview{
		Card:        card,
		Cycle:       domain.NextBillCycle(today, card.EffectiveBillDay()),
		Utilization: domain.Percent(card.Used, card.Limit),
		Unpaid:      unpaid,
	}, nil
}

// Summary 計算所有卡片的總額度、總欠款、使用率與最近 recent 筆交易
func (s *Store) Summary(recent int) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, card := range s.cards {
		sum.CardCount++
		sum.TotalLimit += card.Limit
		sum.TotalOutstanding += card.Used
	}
	sum.Utilization = domain.Percent(sum.TotalOutstanding, sum.TotalLimit)

	all := s.collectTransactions(func(*domain.Transaction) bool { return true })
	if recent >= 0 && len(all) > recent {
		all = all[:recent]
	}
	sum.Recent = all
	return sum
}

// FilterCardTransactions 依搜尋字串與狀態分頁篩選某張卡的交易 (日期新到舊)
func (s *Store) FilterCardTransactions(cardID string, filter TransactionFilter) []domain.Transaction {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	tab := filter.Tab
	if tab == "" {
		tab = TabUnpaid
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTransactions(func(t *domain.Transaction) bool {
		if t.CardID != cardID {
			return false
		}
		if query != "" && !matchesQuery(t, query) {
			return false
		}
		switch tab {
		case TabUnpaid:
			return t.Status == domain.StatusUnpaid
		case TabPaid:
			return t.Status == domain.StatusPaid
		default:
			return true
		}
	})
}

func matchesQuery(t *domain.Transaction, query string) bool {
	return strings.Contains(strings.ToLower(t.Description), query) ||
		strings.Contains(strings.ToLower(t.SpentBy), query) ||
		strings.Contains(strings.ToLower(string(t.Category)), query)
}
