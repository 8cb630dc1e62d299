package usecase

import (
	"context"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
)

// Persistence 是帳本儲存層的介面
// 本地檔案 (WAL) 與遠端資料庫各有一個實作，Store 不知道目前使用哪一個
type Persistence interface {
	// LoadCards 載入所有卡片
	LoadCards(ctx context.Context) ([]domain.Card, error)
	// LoadTransactions 載入所有交易
	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)
	// SaveCard 新增卡片
	SaveCard(ctx context.Context, card domain.Card) error
	// DeleteCardRecord 刪除卡片以及其所有交易
	DeleteCardRecord(ctx context.Context, id string) error
	// SaveTransaction 新增交易
	SaveTransaction(ctx context.Context, tran domain.Transaction) error
	// UpdateTransactionStatus 更新交易狀態
	UpdateTransactionStatus(ctx context.Context, id string, status domain.Status) error
	// UpdateCardBalance 更新卡片餘額
	UpdateCardBalance(ctx context.Context, id string, used, available domain.Money) error
}

// Collection 快照所屬的集合
type Collection uint8

const (
	CollectionCards Collection = iota + 1
	CollectionTransactions
)

// Snapshot 儲存層推送的完整集合快照
// 只有 Collection 指定的那一份資料有意義
type Snapshot struct {
	Collection   Collection
	Cards        []domain.Card
	Transactions []domain.Transaction
}

// SnapshotSource 可以推送變更通知的儲存層 (選用)
type SnapshotSource interface {
	// Watch 開始監聽，ctx 結束時關閉回傳的 channel
	Watch(ctx context.Context) (<-chan Snapshot, error)
}
