package usecase_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
)

func cardSpec(limit domain.Money, billDay int) domain.CardSpec {
	return domain.CardSpec{
		Name:    "Daily",
		Bank:    "HDFC",
		Last4:   "4242",
		Limit:   limit,
		BillDay: billDay,
	}
}

func expense(cardID string, amount domain.Money) domain.TransactionSpec {
	return domain.TransactionSpec{
		CardID:      cardID,
		SpentBy:     "Asha",
		Description: "Groceries",
		Category:    domain.CategoryFood,
		Amount:      amount,
		Type:        domain.TransactionTypeExpense,
		Status:      domain.StatusUnpaid,
	}
}

func payment(cardID string, amount domain.Money) domain.TransactionSpec {
	spec := expense(cardID, amount)
	spec.Type = domain.TransactionTypePayment
	spec.Category = domain.CategoryOther
	spec.Description = "Bill payment"
	return spec
}

// assertInvariants 檢查所有卡片 available == limit - used、used >= 0，以及 totalOutstanding
func assertInvariants(t *testing.T, s *usecase.Store) {
	t.Helper()
	var sum domain.Money
	for _, c := range s.Cards() {
		if c.Available != c.Limit-c.Used {
			t.Errorf("card %s: available %s != limit %s - used %s", c.ID, c.Available, c.Limit, c.Used)
		}
		if c.Used < 0 {
			t.Errorf("card %s: negative used %s", c.ID, c.Used)
		}
		sum += c.Used
	}
	if got := s.TotalOutstanding(); got != sum {
		t.Errorf("TotalOutstanding = %s, want %s", got, sum)
	}
}

func mustCard(t *testing.T, s *usecase.Store, id string) domain.Card {
	t.Helper()
	c, ok := s.Card(id)
	if !ok {
		t.Fatalf("card %s not found", id)
	}
	return c
}

// scenarioA 建立 limit=50000, billDay=20 的卡片並新增 1200 的消費
func scenarioA(t *testing.T) (*usecase.Store, *fakePersistence, domain.Card, domain.Transaction) {
	t.Helper()
	p := newFakePersistence()
	s, err := openStore(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	card, err := s.AddCard(context.Background(), cardSpec(5000000, 20))
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	tran, err := s.AddTransaction(context.Background(), expense(card.ID, 120000))
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	return s, p, card, tran
}

func TestAddCard(t *testing.T) {
	p := newFakePersistence()
	s, err := openStore(p)
	if err != nil {
		t.Fatal(err)
	}
	card, err := s.AddCard(context.Background(), cardSpec(5000000, 20))
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if card.ID != "card-1" || card.Used != 0 || card.Available != 5000000 {
		t.Fatalf("unexpected card %+v", card)
	}
	if got := p.Calls(); !slices.Equal(got, []string{"SaveCard"}) {
		t.Errorf("calls = %v", got)
	}
	assertInvariants(t, s)
}

func TestScenarioAExpense(t *testing.T) {
	s, p, card, tran := scenarioA(t)

	got := mustCard(t, s, card.ID)
	if got.Used != 120000 || got.Available != 4880000 {
		t.Fatalf("used=%s available=%s, want 1200.00 / 48800.00", got.Used, got.Available)
	}
	if !tran.Date.Equal(fixedNow) {
		t.Errorf("date = %s, want default now %s", tran.Date, fixedNow)
	}
	want := []string{"SaveCard", "SaveTransaction", "UpdateCardBalance"}
	if calls := p.Calls(); !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	assertInvariants(t, s)
}

func TestScenarioBPaymentClampsAtZero(t *testing.T) {
	s, _, card, _ := scenarioA(t)

	if _, err := s.AddTransaction(context.Background(), payment(card.ID, 200000)); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	got := mustCard(t, s, card.ID)
	if got.Used != 0 || got.Available != 5000000 {
		t.Fatalf("used=%s available=%s, want 0.00 / 50000.00", got.Used, got.Available)
	}
	assertInvariants(t, s)
}

func TestScenarioCSettle(t *testing.T) {
	s, p, card, tran := scenarioA(t)

	if err := s.SettleTransaction(context.Background(), tran.ID); err != nil {
		t.Fatalf("SettleTransaction: %v", err)
	}
	settled, _ := s.Transaction(tran.ID)
	if settled.Status != domain.StatusPaid {
		t.Errorf("status = %s, want Paid", settled.Status)
	}
	got := mustCard(t, s, card.ID)
	if got.Used != 0 || got.Available != 5000000 {
		t.Fatalf("used=%s available=%s, want 0.00 / 50000.00", got.Used, got.Available)
	}
	if n := p.count("UpdateTransactionStatus"); n != 1 {
		t.Errorf("UpdateTransactionStatus called %d times, want 1", n)
	}
	assertInvariants(t, s)
}

func TestSettleIsIdempotent(t *testing.T) {
	s, p, card, tran := scenarioA(t)
	ctx := context.Background()

	// 另一筆未結清的消費，確認第二次結清不會再扣
	if _, err := s.AddTransaction(ctx, expense(card.ID, 50000)); err != nil {
		t.Fatal(err)
	}
	if err := s.SettleTransaction(ctx, tran.ID); err != nil {
		t.Fatal(err)
	}
	afterOnce := mustCard(t, s, card.ID)
	callsOnce := len(p.Calls())

	if err := s.SettleTransaction(ctx, tran.ID); err != nil {
		t.Fatal(err)
	}
	afterTwice := mustCard(t, s, card.ID)
	if afterOnce != afterTwice {
		t.Fatalf("second settle changed card: %+v -> %+v", afterOnce, afterTwice)
	}
	if afterTwice.Used != 50000 {
		t.Errorf("used = %s, want 500.00", afterTwice.Used)
	}
	if len(p.Calls()) != callsOnce {
		t.Errorf("second settle touched persistence: %v", p.Calls()[callsOnce:])
	}
}

func TestSettleUnknownTransactionIsNoop(t *testing.T) {
	s, p, _, _ := scenarioA(t)
	before := len(p.Calls())
	if err := s.SettleTransaction(context.Background(), "missing"); err != nil {
		t.Fatalf("SettleTransaction(missing) = %v, want nil", err)
	}
	if len(p.Calls()) != before {
		t.Errorf("unexpected persistence calls: %v", p.Calls()[before:])
	}
}

func TestDeleteCardCascades(t *testing.T) {
	s, p, card, _ := scenarioA(t)
	ctx := context.Background()

	other, err := s.AddCard(ctx, cardSpec(1000000, 5))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddTransaction(ctx, expense(other.ID, 30000)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddTransaction(ctx, expense(card.ID, 10000)); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if _, ok := s.Card(card.ID); ok {
		t.Fatal("card still present")
	}
	if got := s.CardTransactions(card.ID); len(got) != 0 {
		t.Fatalf("CardTransactions after delete = %v", got)
	}
	for _, tran := range s.Transactions() {
		if tran.CardID == card.ID {
			t.Fatalf("dangling transaction %s", tran.ID)
		}
	}
	if got := len(s.CardTransactions(other.ID)); got != 1 {
		t.Errorf("other card transactions = %d, want 1", got)
	}
	if got := s.TotalOutstanding(); got != 30000 {
		t.Errorf("TotalOutstanding = %s, want 300.00", got)
	}
	if n := p.count("DeleteCardRecord"); n != 1 {
		t.Errorf("DeleteCardRecord called %d times", n)
	}
	assertInvariants(t, s)
}

func TestDeleteUnknownCardIsNoop(t *testing.T) {
	s, p, _, _ := scenarioA(t)
	before := len(p.Calls())
	if err := s.DeleteCard(context.Background(), "missing"); err != nil {
		t.Fatalf("DeleteCard(missing) = %v", err)
	}
	if len(p.Calls()) != before {
		t.Errorf("unexpected persistence calls: %v", p.Calls()[before:])
	}
	if len(s.Cards()) != 1 {
		t.Errorf("cards = %d, want 1", len(s.Cards()))
	}
}

func TestAddTransactionRejectsUnknownCard(t *testing.T) {
	s, p, _, _ := scenarioA(t)
	before := len(s.Transactions())
	calls := len(p.Calls())

	_, err := s.AddTransaction(context.Background(), expense("missing", 1000))
	if !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("error = %v, want ErrCardNotFound", err)
	}
	if len(s.Transactions()) != before {
		t.Error("transaction created for unknown card")
	}
	if len(p.Calls()) != calls {
		t.Errorf("unexpected persistence calls: %v", p.Calls()[calls:])
	}
}

func TestInvalidInputRejectedBeforeMutation(t *testing.T) {
	s, p, card, _ := scenarioA(t)
	ctx := context.Background()
	calls := len(p.Calls())

	if _, err := s.AddCard(ctx, cardSpec(0, 20)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("AddCard(limit=0) = %v, want ErrInvalidInput", err)
	}
	if _, err := s.AddCard(ctx, cardSpec(1000, 40)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("AddCard(billDay=40) = %v, want ErrInvalidInput", err)
	}
	if _, err := s.AddTransaction(ctx, expense(card.ID, 0)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("AddTransaction(amount=0) = %v, want ErrInvalidInput", err)
	}
	if len(s.Cards()) != 1 || len(s.Transactions()) != 1 {
		t.Errorf("state mutated: %d cards, %d transactions", len(s.Cards()), len(s.Transactions()))
	}
	if len(p.Calls()) != calls {
		t.Errorf("unexpected persistence calls: %v", p.Calls()[calls:])
	}
}

func TestOversizeAmountRejectedBeforeMutation(t *testing.T) {
	s, p, card, _ := scenarioA(t)
	ctx := context.Background()
	calls := len(p.Calls())

	if _, err := s.AddTransaction(ctx, expense(card.ID, domain.MaxMoney+1)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("AddTransaction(MaxMoney+1) = %v, want ErrInvalidInput", err)
	}
	if _, err := s.AddCard(ctx, cardSpec(domain.MaxMoney+1, 20)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("AddCard(MaxMoney+1) = %v, want ErrInvalidInput", err)
	}
	if got := mustCard(t, s, card.ID); got.Used != 120000 {
		t.Errorf("Used = %s, want 1200.00", got.Used)
	}
	if len(s.Cards()) != 1 || len(s.Transactions()) != 1 {
		t.Errorf("state mutated: %d cards, %d transactions", len(s.Cards()), len(s.Transactions()))
	}
	if len(p.Calls()) != calls {
		t.Errorf("unexpected persistence calls: %v", p.Calls()[calls:])
	}
}

func TestExpensePastMaxUsedRejected(t *testing.T) {
	p := newFakePersistence()
	p.cards = []domain.Card{{
		ID: "big", Name: "Corporate", Bank: "HDFC", Last4: "0001",
		Limit: domain.MaxMoney, BillDay: 20, Used: domain.MaxUsed - 100,
	}}
	s, err := openStore(p)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := s.AddTransaction(ctx, expense("big", 101)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if got := mustCard(t, s, "big"); got.Used != domain.MaxUsed-100 {
		t.Fatalf("Used = %s after rejected expense", got.Used)
	}
	if len(s.Transactions()) != 0 || len(p.Calls()) != 0 {
		t.Fatalf("rejected expense left state: %d transactions, calls %v", len(s.Transactions()), p.Calls())
	}

	if _, err := s.AddTransaction(ctx, expense("big", 100)); err != nil {
		t.Fatalf("AddTransaction up to MaxUsed: %v", err)
	}
	if got := mustCard(t, s, "big"); got.Used != domain.MaxUsed {
		t.Errorf("Used = %s, want %s", got.Used, domain.MaxUsed)
	}
	assertInvariants(t, s)
}

func TestPersistenceFailureKeepsOptimisticState(t *testing.T) {
	s, p, card, _ := scenarioA(t)
	p.failOn["UpdateCardBalance"] = errDiskFull

	tran, err := s.AddTransaction(context.Background(), expense(card.ID, 80000))
	if !errors.Is(err, domain.ErrPersistenceFailure) {
		t.Fatalf("error = %v, want ErrPersistenceFailure", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("cause lost: %v", err)
	}
	if _, ok := s.Transaction(tran.ID); !ok {
		t.Error("optimistic transaction missing")
	}
	if got := mustCard(t, s, card.ID); got.Used != 200000 {
		t.Errorf("used = %s, want 2000.00", got.Used)
	}
	assertInvariants(t, s)
}

func TestExplicitDateIsKept(t *testing.T) {
	s, _, card, _ := scenarioA(t)
	when := time.Date(2025, time.January, 2, 15, 4, 5, 0, time.UTC)
	spec := expense(card.ID, 100)
	spec.Date = when

	tran, err := s.AddTransaction(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if !tran.Date.Equal(when) {
		t.Errorf("date = %s, want %s", tran.Date, when)
	}
}

func TestInvariantsHoldAcrossMixedOperations(t *testing.T) {
	p := newFakePersistence()
	s, err := openStore(p)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	a, _ := s.AddCard(ctx, cardSpec(100000, 1))
	b, _ := s.AddCard(ctx, cardSpec(50000, 31))
	var ids []string
	for i := 1; i <= 30; i++ {
		cardID := a.ID
		if i%3 == 0 {
			cardID = b.ID
		}
		spec := expense(cardID, domain.Money(i*1234))
		if i%4 == 0 {
			spec = payment(cardID, domain.Money(i*2000))
		}
		tran, err := s.AddTransaction(ctx, spec)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tran.ID)
		if i%5 == 0 {
			if err := s.SettleTransaction(ctx, ids[i/2]); err != nil {
				t.Fatal(err)
			}
		}
		assertInvariants(t, s)
	}
	if err := s.DeleteCard(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	assertInvariants(t, s)
}

func TestOpenLoadsAndNormalizes(t *testing.T) {
	p := newFakePersistence()
	p.cards = []domain.Card{
		{ID: "a", Name: "A", Limit: 10000, Used: 2500, Available: 9999},
		{ID: "b", Name: "B", Limit: 10000, Used: -10, Available: 0},
	}
	p.trans = []domain.Transaction{
		{ID: "t1", CardID: "a", Amount: 2500, Type: domain.TransactionTypeExpense, Status: domain.StatusUnpaid},
	}
	s, err := openStore(p)
	if err != nil {
		t.Fatal(err)
	}
	if got := mustCard(t, s, "a"); got.Available != 7500 {
		t.Errorf("available = %s, want 75.00", got.Available)
	}
	if got := mustCard(t, s, "b"); got.Used != 0 || got.Available != 10000 {
		t.Errorf("card b = %+v", got)
	}
	if len(s.CardTransactions("a")) != 1 {
		t.Error("transactions not loaded")
	}
	assertInvariants(t, s)
}

func TestOpenLoadFailure(t *testing.T) {
	p := newFakePersistence()
	p.loadErr = errDiskFull
	if _, err := openStore(p); !errors.Is(err, domain.ErrPersistenceFailure) {
		t.Fatalf("Open error = %v, want ErrPersistenceFailure", err)
	}
}

func TestApplySnapshotReplacesCollection(t *testing.T) {
	s, _, card, tran := scenarioA(t)

	s.ApplySnapshot(usecase.Snapshot{
		Collection: usecase.CollectionCards,
		Cards: []domain.Card{
			{ID: card.ID, Name: "Daily", Limit: 5000000, Used: 300000},
			{ID: "remote", Name: "Remote", Limit: 20000, Used: 0, Available: 20000},
		},
	})
	if got := mustCard(t, s, card.ID); got.Used != 300000 || got.Available != 4700000 {
		t.Errorf("card after snapshot = %+v", got)
	}
	if len(s.Cards()) != 2 {
		t.Errorf("cards = %d, want 2", len(s.Cards()))
	}

	s.ApplySnapshot(usecase.Snapshot{
		Collection: usecase.CollectionTransactions,
		Transactions: []domain.Transaction{
			{ID: "remote-tx", CardID: "remote", Amount: 100, Type: domain.TransactionTypeExpense, Status: domain.StatusUnpaid},
		},
	})
	if _, ok := s.Transaction(tran.ID); ok {
		t.Error("transaction snapshot merged instead of replaced")
	}
	if len(s.Transactions()) != 1 {
		t.Errorf("transactions = %d, want 1", len(s.Transactions()))
	}
	assertInvariants(t, s)
}

func TestFollowAppliesSnapshotsUntilClosed(t *testing.T) {
	s, _, _, _ := scenarioA(t)
	src := &fakeSource{ch: make(chan usecase.Snapshot, 1)}
	src.ch <- usecase.Snapshot{Collection: usecase.CollectionCards}
	close(src.ch)

	if err := s.Follow(context.Background(), src); err != nil {
		t.Fatalf("Follow = %v", err)
	}
	if len(s.Cards()) != 0 {
		t.Errorf("cards = %d, want empty snapshot applied", len(s.Cards()))
	}
	assertInvariants(t, s)
}

func TestFollowStopsOnContextCancel(t *testing.T) {
	s, _, _, _ := scenarioA(t)
	src := &fakeSource{ch: make(chan usecase.Snapshot)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Follow(ctx, src); !errors.Is(err, context.Canceled) {
		t.Fatalf("Follow = %v, want context.Canceled", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s, _, card, _ := scenarioA(t)
	cards := s.Cards()
	cards[0].Used = 1
	if got := mustCard(t, s, card.ID); got.Used != 120000 {
		t.Fatal("Cards() leaked internal state")
	}
}
