package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
)

// Store 是帳本的唯一資料來源 (Ledger Store)
//
// 結構:
//
//	cards / cardOrder: 卡片資料與建立順序
//	transactions: 交易資料
//	mu: 保護上述資料，讀取只需 RLock
//	writeMu: 串行化所有變更與快照套用 (單一寫入者)
//	persistence: 儲存層
//
// 所有變更先更新記憶體 (讀取立即可見)，再寫入儲存層；
// 儲存層失敗時回傳 ErrPersistenceFailure，記憶體狀態不回滾，等待下一次快照或重啟重新載入
type Store struct {
	persistence Persistence
	ids         domain.IDGenerator
	now         func() time.Time

	writeMu sync.Mutex

	mu           sync.RWMutex
	cards        map[string]*domain.Card
	cardOrder    []string
	transactions map[string]*domain.Transaction
}

// Option 定義 Store 的配置選項函數
type Option func(*Store)

// WithClock 設定取得目前時間的函數 (交易預設日期)
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator 設定 ID 產生器
func WithIDGenerator(ids domain.IDGenerator) Option {
	return func(s *Store) {
		s.ids = ids
	}
}

// Open 從儲存層載入所有卡片與交易，建立 Store
//
// 參數:
//
//	ctx: 上下文
//	persistence: 儲存層
//	opts: 可選配置
//
// 回傳:
//
//	*Store: Store 實例
//	error: 載入失敗時回傳 ErrPersistenceFailure
func Open(ctx context.Context, persistence Persistence, opts ...Option) (*Store, error) {
	s := &Store{
		persistence:  persistence,
		ids:          domain.NewDefaultIDs(),
		now:          time.Now,
		cards:        make(map[string]*domain.Card),
		transactions: make(map[string]*domain.Transaction),
	}
	for _, opt := range opts {
		opt(s)
	}

	cards, err := persistence.LoadCards(ctx)
	if err != nil {
		return nil, persistErr("load cards", err)
	}
	trans, err := persistence.LoadTransactions(ctx)
	if err != nil {
		return nil, persistErr("load transactions", err)
	}
	s.replaceCards(cards)
	s.replaceTransactions(trans)
	return s, nil
}

// AddCard 新增一張卡片，used = 0, available = limit
func (s *Store) AddCard(ctx context.Context, spec domain.CardSpec) (domain.Card, error) {
	if err := domain.ValidateCardSpec(spec); err != nil {
		return domain.Card{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	card := domain.NewCard(s.ids.NewCardID(), spec)
	s.mu.Lock()
	s.putCard(card)
	s.mu.Unlock()

	if err := s.persistence.SaveCard(ctx, card); err != nil {
		return card, persistErr("save card", err)
	}
	return card, nil
}

// DeleteCard 刪除卡片並連帶刪除其所有交易
// 找不到卡片時不做任何事 (冪等)
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	_, ok := s.cards[id]
	if ok {
		delete(s.cards, id)
		s.cardOrder = slices.DeleteFunc(s.cardOrder, func(cid string) bool { return cid == id })
		for tid, tran := range s.transactions {
			if tran.CardID == id {
				delete(s.transactions, tid)
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := s.persistence.DeleteCardRecord(ctx, id); err != nil {
		return persistErr("delete card", err)
	}
	return nil
}

// AddTransaction 新增交易並重新計算所屬卡片的餘額
//
// 參數:
//
//	ctx: 上下文
//	spec: 交易內容，Date 為零值時使用目前時間
//
// 回傳:
//
//	domain.Transaction: 新增的交易
//	error: 輸入不合法或會讓 used 超過上限 (ErrInvalidInput)、卡片不存在 (ErrCardNotFound) 或儲存失敗 (ErrPersistenceFailure)
func (s *Store) AddTransaction(ctx context.Context, spec domain.TransactionSpec) (domain.Transaction, error) {
	if err := domain.ValidateTransactionSpec(spec); err != nil {
		return domain.Transaction{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	card, ok := s.cards[spec.CardID]
	if !ok {
		s.mu.Unlock()
		return domain.Transaction{}, fmt.Errorf("add transaction for card %q: %w", spec.CardID, domain.ErrCardNotFound)
	}
	if err := card.CheckApply(spec.Type, spec.Amount); err != nil {
		s.mu.Unlock()
		return domain.Transaction{}, err
	}
	now := s.now()
	tran := domain.NewTransaction(s.ids.NewTransactionID(now), spec, now)
	stored := tran
	s.transactions[tran.ID] = &stored
	card.Apply(tran.Type, tran.Amount)
	balance := *card
	s.mu.Unlock()

	if err := s.persistence.SaveTransaction(ctx, tran); err != nil {
		return tran, persistErr("save transaction", err)
	}
	if err := s.persistence.UpdateCardBalance(ctx, balance.ID, balance.Used, balance.Available); err != nil {
		return tran, persistErr("update card balance", err)
	}
	return tran, nil
}

// SettleTransaction 將 Unpaid 交易標記為 Paid，並以交易金額抵減所屬卡片的 used
// 交易不存在或已經是 Paid 時不做任何事 (冪等，不會重複扣減)
func (s *Store) SettleTransaction(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	tran, ok := s.transactions[id]
	if !ok || !tran.Settle() {
		s.mu.Unlock()
		return nil
	}
	status := tran.Status
	card, hasCard := s.cards[tran.CardID]
	var balance domain.Card
	if hasCard {
		card.ApplyPayment(tran.Amount)
		balance = *card
	}
	s.mu.Unlock()

	if err := s.persistence.UpdateTransactionStatus(ctx, id, status); err != nil {
		return persistErr("update transaction status", err)
	}
	if !hasCard {
		return nil
	}
	if err := s.persistence.UpdateCardBalance(ctx, balance.ID, balance.Used, balance.Available); err != nil {
		return persistErr("update card balance", err)
	}
	return nil
}

// Cards 回傳所有卡片 (依建立順序)
func (s *Store) Cards() []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cards := make([]domain.Card, 0, len(s.cardOrder))
	for _, id := range s.cardOrder {
		cards = append(cards, *s.cards[id])
	}
	return cards
}

// Card 取得單張卡片
func (s *Store) Card(id string) (domain.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return domain.Card{}, false
	}
	return *card, true
}

// Transactions 回傳所有交易 (日期新到舊)
func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTransactions(func(*domain.Transaction) bool { return true })
}

// Transaction 取得單筆交易
func (s *Store) Transaction(id string) (domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tran, ok := s.transactions[id]
	if !ok {
		return domain.Transaction{}, false
	}
	return *tran, true
}

// CardTransactions 回傳某張卡的所有交易
func (s *Store) CardTransactions(cardID string) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTransactions(func(t *domain.Transaction) bool { return t.CardID == cardID })
}

// TotalOutstanding 所有卡片 used 的總和
func (s *Store) TotalOutstanding() domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total domain.Money
	for _, card := range s.cards {
		total += card.Used
	}
	return total
}

// ApplySnapshot 以儲存層推送的快照整批取代對應的集合 (last snapshot wins)
// 快照只會在兩次變更之間套用，不會插入一個變更的中途
func (s *Store) ApplySnapshot(snap Snapshot) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	switch snap.Collection {
	case CollectionCards:
		s.replaceCards(snap.Cards)
	case CollectionTransactions:
		s.replaceTransactions(snap.Transactions)
	}
}

// Follow 持續套用 source 推送的快照，直到 ctx 結束或 channel 關閉
func (s *Store) Follow(ctx context.Context, source SnapshotSource) error {
	snapshots, err := source.Watch(ctx)
	if err != nil {
		return persistErr("watch snapshots", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			s.ApplySnapshot(snap)
		}
	}
}

// replaceCards 整批取代卡片，並重新正規化餘額
func (s *Store) replaceCards(cards []domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = make(map[string]*domain.Card, len(cards))
	s.cardOrder = make([]string, 0, len(cards))
	for _, card := range cards {
		card.Rebalance()
		s.putCard(card)
	}
}

func (s *Store) replaceTransactions(trans []domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = make(map[string]*domain.Transaction, len(trans))
	for i := range trans {
		tran := trans[i]
		s.transactions[tran.ID] = &tran
	}
}

// putCard 呼叫端需持有 mu
func (s *Store) putCard(card domain.Card) {
	if _, exists := s.cards[card.ID]; !exists {
		s.cardOrder = append(s.cardOrder, card.ID)
	}
	s.cards[card.ID] = &card
}

// collectTransactions 呼叫端需持有 mu
func (s *Store) collectTransactions(keep func(*domain.Transaction) bool) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for _, tran := range s.transactions {
		if keep(tran) {
			out = append(out, *tran)
		}
	}
	sortNewestFirst(out)
	return out
}

// sortNewestFirst 日期新到舊，同時間以 ID 倒序
func sortNewestFirst(trans []domain.Transaction) {
	slices.SortFunc(trans, func(a, b domain.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

func persistErr(op string, err error) error {
	if errors.Is(err, domain.ErrPersistenceFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistenceFailure, err)
}
