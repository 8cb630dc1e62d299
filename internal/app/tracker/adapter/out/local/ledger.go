package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
	"github.com/JoeShih716/go-card-ledger/pkg/wal"
)

// op 記錄檔中的操作類型
type op string

const (
	opSaveCard          op = "save_card"
	opDeleteCard        op = "delete_card"
	opSaveTransaction   op = "save_transaction"
	opUpdateStatus      op = "update_status"
	opUpdateCardBalance op = "update_card_balance"
)

// event 寫入 WAL 的一筆記錄
type event struct {
	Op          op                  `json:"op"`
	At          int64               `json:"at"`
	ID          string              `json:"id,omitempty"`
	Card        *domain.Card        `json:"card,omitempty"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Status      domain.Status       `json:"status,omitempty"`
	Used        domain.Money        `json:"used"`
	Available   domain.Money        `json:"available"`
}

// Ledger 是本機檔案版本的儲存層
//
// 結構:
//
//	wal: 所有變更以事件形式追加到 WAL，啟動時重放
//	cards / transactions: 重放後的目前狀態 (依寫入順序)
//	compactThreshold: 重放事件數超過此值時壓縮 WAL，0 表示不壓縮
type Ledger struct {
	wal              *wal.WAL
	mu               sync.Mutex
	cards            []domain.Card
	transactions     []domain.Transaction
	compactThreshold int
}

// Option 定義 Ledger 的配置選項函數
type Option func(*Ledger)

// WithCompactThreshold 設定壓縮門檻
func WithCompactThreshold(n int) Option {
	return func(l *Ledger) {
		l.compactThreshold = n
	}
}

// NewLedger 建立本機儲存層，並從 WAL 恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例
//	opts: 可選配置
//
// 回傳:
//
//	*Ledger: 實例
//	error: WAL 讀取或解析錯誤
func NewLedger(w *wal.WAL, opts ...Option) (*Ledger, error) {
	l := &Ledger{wal: w}
	for _, opt := range opts {
		opt(l)
	}
	count, err := l.recoverFromWAL()
	if err != nil {
		return nil, err
	}
	if l.compactThreshold > 0 && count > l.compactThreshold {
		if err := l.compact(); err != nil {
			return nil, fmt.Errorf("compact wal: %w", err)
		}
		log.Printf("Compacted WAL %s: %d events -> %d records", w.Path(), count, len(l.cards)+len(l.transactions))
	}
	return l, nil
}

// recoverFromWAL 從 WAL 重放所有事件，回傳事件數
// 只有 NewLedger 呼叫，無需 Lock (單執行緒)
func (l *Ledger) recoverFromWAL() (int, error) {
	count := 0
	err := l.wal.ReadAll(func(jsonRaw []byte) error {
		var ev event
		if err := json.Unmarshal(jsonRaw, &ev); err != nil {
			return err
		}
		l.apply(&ev)
		count++
		return nil
	})
	return count, err
}

// compact 將目前狀態改寫為每張卡片、每筆交易各一筆 save 事件
func (l *Ledger) compact() error {
	now := time.Now().UnixMilli()
	records := make([]any, 0, len(l.cards)+len(l.transactions))
	for i := range l.cards {
		records = append(records, event{Op: opSaveCard, At: now, Card: &l.cards[i]})
	}
	for i := range l.transactions {
		records = append(records, event{Op: opSaveTransaction, At: now, Transaction: &l.transactions[i]})
	}
	return l.wal.Rewrite(records)
}

func (l *Ledger) LoadCards(ctx context.Context) ([]domain.Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.cards), nil
}

func (l *Ledger) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.transactions), nil
}

func (l *Ledger) SaveCard(ctx context.Context, card domain.Card) error {
	return l.record(&event{Op: opSaveCard, Card: &card})
}

// DeleteCardRecord 刪除卡片，重放時連同其交易一起刪除
func (l *Ledger) DeleteCardRecord(ctx context.Context, id string) error {
	return l.record(&event{Op: opDeleteCard, ID: id})
}

func (l *Ledger) SaveTransaction(ctx context.Context, tran domain.Transaction) error {
	return l.record(&event{Op: opSaveTransaction, Transaction: &tran})
}

func (l *Ledger) UpdateTransactionStatus(ctx context.Context, id string, status domain.Status) error {
	return l.record(&event{Op: opUpdateStatus, ID: id, Status: status})
}

func (l *Ledger) UpdateCardBalance(ctx context.Context, id string, used, available domain.Money) error {
	return l.record(&event{Op: opUpdateCardBalance, ID: id, Used: used, Available: available})
}

// record 先寫入 WAL (Critical Path)，成功後才更新記憶體
func (l *Ledger) record(ev *event) error {
	ev.At = time.Now().UnixMilli()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.wal.Write(ev); err != nil {
		return fmt.Errorf("write wal: %w", err)
	}
	l.apply(ev)
	return nil
}

// apply 套用單一事件，找不到目標時忽略
func (l *Ledger) apply(ev *event) {
	switch ev.Op {
	case opSaveCard:
		if ev.Card == nil {
			return
		}
		if i := l.cardIndex(ev.Card.ID); i >= 0 {
			l.cards[i] = *ev.Card
			return
		}
		l.cards = append(l.cards, *ev.Card)
	case opDeleteCard:
		l.cards = slices.DeleteFunc(l.cards, func(c domain.Card) bool { return c.ID == ev.ID })
		l.transactions = slices.DeleteFunc(l.transactions, func(t domain.Transaction) bool { return t.CardID == ev.ID })
	case opSaveTransaction:
		if ev.Transaction == nil {
			return
		}
		if i := l.transactionIndex(ev.Transaction.ID); i >= 0 {
			l.transactions[i] = *ev.Transaction
			return
		}
		l.transactions = append(l.transactions, *ev.Transaction)
	case opUpdateStatus:
		if i := l.transactionIndex(ev.ID); i >= 0 {
			l.transactions[i].Status = ev.Status
		}
	case opUpdateCardBalance:
		if i := l.cardIndex(ev.ID); i >= 0 {
			l.cards[i].Used = ev.Used
			l.cards[i].Available = ev.Available
		}
	}
}

func (l *Ledger) cardIndex(id string) int {
	return slices.IndexFunc(l.cards, func(c domain.Card) bool { return c.ID == id })
}

func (l *Ledger) transactionIndex(id string) int {
	return slices.IndexFunc(l.transactions, func(t domain.Transaction) bool { return t.ID == id })
}

var _ usecase.Persistence = (*Ledger)(nil)
