package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
)

var errDiskFull = errors.New("disk full")

// fakePersistence 記錄每次呼叫，可針對指定方法注入錯誤
type fakePersistence struct {
	mu      sync.Mutex
	cards   []domain.Card
	trans   []domain.Transaction
	calls   []string
	failOn  map[string]error
	loadErr error
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{failOn: map[string]error{}}
}

func (f *fakePersistence) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakePersistence) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakePersistence) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakePersistence) LoadCards(ctx context.Context) ([]domain.Card, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return slices.Clone(f.cards), nil
}

func (f *fakePersistence) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return slices.Clone(f.trans), nil
}

func (f *fakePersistence) SaveCard(ctx context.Context, card domain.Card) error {
	return f.record("SaveCard")
}

func (f *fakePersistence) DeleteCardRecord(ctx context.Context, id string) error {
	return f.record("DeleteCardRecord")
}

func (f *fakePersistence) SaveTransaction(ctx context.Context, tran domain.Transaction) error {
	return f.record("SaveTransaction")
}

func (f *fakePersistence) UpdateTransactionStatus(ctx context.Context, id string, status domain.Status) error {
	return f.record("UpdateTransactionStatus")
}

func (f *fakePersistence) UpdateCardBalance(ctx context.Context, id string, used, available domain.Money) error {
	return f.record("UpdateCardBalance")
}

// sequentialIDs 產生可預期的 ID
type sequentialIDs struct {
	cards, trans int
}

func (s *sequentialIDs) NewCardID() string {
	s.cards++
	return fmt.Sprintf("card-%d", s.cards)
}

func (s *sequentialIDs) NewTransactionID(at time.Time) string {
	s.trans++
	return fmt.Sprintf("tx-%03d", s.trans)
}

type fakeSource struct {
	ch chan usecase.Snapshot
}

func (f *fakeSource) Watch(ctx context.Context) (<-chan usecase.Snapshot, error) {
	return f.ch, nil
}

var fixedNow = time.Date(2025, time.March, 25, 10, 0, 0, 0, time.UTC)

func openStore(p usecase.Persistence) (*usecase.Store, error) {
	return usecase.Open(context.Background(), p,
		usecase.WithIDGenerator(&sequentialIDs{}),
		usecase.WithClock(func() time.Time { return fixedNow }),
	)
}
