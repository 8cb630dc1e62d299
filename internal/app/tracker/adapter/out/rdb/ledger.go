package rdb

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
	"github.com/JoeShih716/go-card-ledger/pkg/database"
)

// sqlCard 對應資料庫的 cards 表
type sqlCard struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:128"`
	Bank      string `gorm:"size:128"`
	Last4     string `gorm:"size:4"`
	Theme     string `gorm:"size:32"`
	Limit     int64  `gorm:"column:credit_limit"` // limit 是 SQL 保留字
	BillDay   int
	Used      int64
	Available int64
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlCard) TableName() string {
	return "cards"
}

// sqlTransaction 對應資料庫的 card_transactions 表
type sqlTransaction struct {
	ID          string `gorm:"primaryKey;size:26"`
	CardID      string `gorm:"size:36;index"`
	SpentBy     string `gorm:"size:128"`
	Description string `gorm:"size:255"`
	Category    string `gorm:"size:16"`
	Amount      int64
	Date        time.Time
	Type        string `gorm:"size:16"`
	Status      string `gorm:"size:16"`
	UpdatedAt   int64  `gorm:"autoUpdateTime:milli"`
}

func (*sqlTransaction) TableName() string {
	return "card_transactions"
}

// fingerprint 用來判斷資料表是否有變更
type fingerprint struct {
	Count      int64
	LastUpdate int64
}

// Ledger 是遠端資料庫版本的儲存層，同時以輪詢方式推送完整快照
type Ledger struct {
	client       *database.Client
	pollInterval time.Duration
}

// NewLedger 建立遠端儲存層並建立資料表
//
// 參數:
//
//	client: 資料庫客戶端
//	pollInterval: 輪詢間隔，<= 0 時使用 2 秒
func NewLedger(client *database.Client, pollInterval time.Duration) (*Ledger, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if err := client.DB().AutoMigrate(&sqlCard{}, &sqlTransaction{}); err != nil {
		return nil, err
	}
	return &Ledger{
		client:       client,
		pollInterval: pollInterval,
	}, nil
}

func (l *Ledger) LoadCards(ctx context.Context) ([]domain.Card, error) {
	var rows []sqlCard
	if err := l.client.DB().WithContext(ctx).Order("updated_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	cards := make([]domain.Card, 0, len(rows))
	for i := range rows {
		cards = append(cards, rows[i].toDomain())
	}
	return cards, nil
}

func (l *Ledger) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var rows []sqlTransaction
	if err := l.client.DB().WithContext(ctx).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	trans := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		trans = append(trans, rows[i].toDomain())
	}
	return trans, nil
}

func (l *Ledger) SaveCard(ctx context.Context, card domain.Card) error {
	row := fromCard(card)
	return l.client.DB().WithContext(ctx).Create(&row).Error
}

// DeleteCardRecord 在同一個 DB Transaction 內刪除卡片與其所有交易
func (l *Ledger) DeleteCardRecord(ctx context.Context, id string) error {
	return l.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id = ?", id).Delete(&sqlTransaction{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&sqlCard{}).Error
	})
}

func (l *Ledger) SaveTransaction(ctx context.Context, tran domain.Transaction) error {
	row := fromTransaction(tran)
	return l.client.DB().WithContext(ctx).Create(&row).Error
}

func (l *Ledger) UpdateTransactionStatus(ctx context.Context, id string, status domain.Status) error {
	return l.client.DB().WithContext(ctx).
		Model(&sqlTransaction{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
}

func (l *Ledger) UpdateCardBalance(ctx context.Context, id string, used, available domain.Money) error {
	return l.client.DB().WithContext(ctx).
		Model(&sqlCard{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"used":      int64(used),
			"available": int64(available),
		}).Error
}

// tables 是輪詢需要的查詢，Ledger 以資料庫實作
type tables interface {
	fingerprint(ctx context.Context, model any) (fingerprint, error)
	LoadCards(ctx context.Context) ([]domain.Card, error)
	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// poll 追蹤一張表的最後指紋
type poll struct {
	name  string
	model any
	last  fingerprint
	load  func(ctx context.Context) (usecase.Snapshot, error)
}

// Watch 每隔 pollInterval 檢查兩張表，有變更時推送該表的完整快照
func (l *Ledger) Watch(ctx context.Context) (<-chan usecase.Snapshot, error) {
	return watch(ctx, l, l.pollInterval), nil
}

func watch(ctx context.Context, src tables, interval time.Duration) <-chan usecase.Snapshot {
	polls := []*poll{
		{
			name:  "cards",
			model: &sqlCard{},
			load: func(ctx context.Context) (usecase.Snapshot, error) {
				cards, err := src.LoadCards(ctx)
				return usecase.Snapshot{Collection: usecase.CollectionCards, Cards: cards}, err
			},
		},
		{
			name:  "transactions",
			model: &sqlTransaction{},
			load: func(ctx context.Context) (usecase.Snapshot, error) {
				trans, err := src.LoadTransactions(ctx)
				return usecase.Snapshot{Collection: usecase.CollectionTransactions, Transactions: trans}, err
			},
		},
	}

	out := make(chan usecase.Snapshot, len(polls))
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for _, p := range polls {
				snap, changed := p.check(ctx, src)
				if changed && !send(ctx, out, snap) {
					return
				}
			}
		}
	}()
	return out
}

// check 指紋與上次不同時載入整張表；查詢失敗只記錄，下一輪再試
func (p *poll) check(ctx context.Context, src tables) (usecase.Snapshot, bool) {
	fp, err := src.fingerprint(ctx, p.model)
	if err != nil {
		log.Printf("poll %s failed: %v", p.name, err)
		return usecase.Snapshot{}, false
	}
	if fp == p.last {
		return usecase.Snapshot{}, false
	}
	snap, err := p.load(ctx)
	if err != nil {
		log.Printf("load %s snapshot failed: %v", p.name, err)
		return usecase.Snapshot{}, false
	}
	p.last = fp
	return snap, true
}

func (l *Ledger) fingerprint(ctx context.Context, model any) (fingerprint, error) {
	var fp fingerprint
	err := l.client.DB().WithContext(ctx).
		Model(model).
		Select("COUNT(*) AS count, COALESCE(MAX(updated_at), 0) AS last_update").
		Scan(&fp).Error
	return fp, err
}

func send(ctx context.Context, out chan<- usecase.Snapshot, snap usecase.Snapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

var (
	_ usecase.Persistence    = (*Ledger)(nil)
	_ usecase.SnapshotSource = (*Ledger)(nil)
	_ tables                 = (*Ledger)(nil)
)
