package rdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
)

// fakeTables 以記憶體模擬兩張表的指紋與內容
type fakeTables struct {
	mu      sync.Mutex
	cardsFP fingerprint
	transFP fingerprint
	cards   []domain.Card
	trans   []domain.Transaction
	fpErr   error
	loadErr error
}

func (f *fakeTables) fingerprint(ctx context.Context, model any) (fingerprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fpErr != nil {
		return fingerprint{}, f.fpErr
	}
	if _, ok := model.(*sqlCard); ok {
		return f.cardsFP, nil
	}
	return f.transFP, nil
}

func (f *fakeTables) LoadCards(ctx context.Context) ([]domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]domain.Card(nil), f.cards...), nil
}

func (f *fakeTables) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]domain.Transaction(nil), f.trans...), nil
}

func (f *fakeTables) update(fn func(*fakeTables)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func receive(t *testing.T, ch <-chan usecase.Snapshot) usecase.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return usecase.Snapshot{}
}

func expectNone(t *testing.T, ch <-chan usecase.Snapshot) {
	t.Helper()
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot %+v", snap)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestWatchEmitsOnFingerprintChange(t *testing.T) {
	f := &fakeTables{
		cardsFP: fingerprint{Count: 1, LastUpdate: 100},
		cards:   []domain.Card{{ID: "c1", Limit: 1000, Available: 1000}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := watch(ctx, f, time.Millisecond)

	snap := receive(t, ch)
	if snap.Collection != usecase.CollectionCards || len(snap.Cards) != 1 {
		t.Fatalf("first snapshot = %+v", snap)
	}
	// 指紋沒變就不再推送
	expectNone(t, ch)

	f.update(func(f *fakeTables) {
		f.transFP = fingerprint{Count: 1, LastUpdate: 200}
		f.trans = []domain.Transaction{{ID: "t1", CardID: "c1", Amount: 50}}
	})
	snap = receive(t, ch)
	if snap.Collection != usecase.CollectionTransactions || len(snap.Transactions) != 1 {
		t.Fatalf("transactions snapshot = %+v", snap)
	}

	// 只有 updated_at 變動 (例如餘額更新) 也要推送
	f.update(func(f *fakeTables) {
		f.cardsFP = fingerprint{Count: 1, LastUpdate: 300}
		f.cards[0].Used = 10
	})
	snap = receive(t, ch)
	if snap.Collection != usecase.CollectionCards || snap.Cards[0].Used != 10 {
		t.Fatalf("cards snapshot = %+v", snap)
	}
	expectNone(t, ch)

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("snapshot after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatchRetriesAfterQueryError(t *testing.T) {
	errDown := errors.New("database is down")
	f := &fakeTables{
		cardsFP: fingerprint{Count: 1, LastUpdate: 100},
		cards:   []domain.Card{{ID: "c1"}},
		fpErr:   errDown,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := watch(ctx, f, time.Millisecond)
	expectNone(t, ch)

	// 指紋查得到但載入失敗時，不能記下新指紋
	f.update(func(f *fakeTables) {
		f.fpErr = nil
		f.loadErr = errDown
	})
	expectNone(t, ch)

	f.update(func(f *fakeTables) { f.loadErr = nil })
	snap := receive(t, ch)
	if snap.Collection != usecase.CollectionCards || len(snap.Cards) != 1 {
		t.Fatalf("snapshot after recovery = %+v", snap)
	}
}
