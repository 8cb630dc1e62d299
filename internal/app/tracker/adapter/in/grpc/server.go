package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
)

// defaultRecent 總覽預設顯示的最近交易筆數
const defaultRecent = 5

type GrpcServer struct {
	store *usecase.Store
	now   func() time.Time
}

func NewGrpcServer(store *usecase.Store) *GrpcServer {
	return &GrpcServer{
		store: store,
		now:   time.Now,
	}
}

func (s *GrpcServer) AddCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spec, err := cardSpecFrom(req)
	if err != nil {
		return nil, toStatus(err)
	}
	card, err := s.store.AddCard(ctx, spec)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(cardMap(card))
}

func (s *GrpcServer) DeleteCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.store.DeleteCard(ctx, stringField(req, "id")); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

func (s *GrpcServer) AddTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spec, err := transactionSpecFrom(req)
	if err != nil {
		return nil, toStatus(err)
	}
	tran, err := s.store.AddTransaction(ctx, spec)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(transactionMap(tran))
}

// SettleTransaction 結清交易，找不到交易時回傳 found=false 而不是錯誤
func (s *GrpcServer) SettleTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	if err := s.store.SettleTransaction(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	tran, ok := s.store.Transaction(id)
	if !ok {
		return structpb.NewStruct(map[string]any{"found": false})
	}
	return structpb.NewStruct(map[string]any{
		"found":       true,
		"transaction": transactionMap(tran),
	})
}

func (s *GrpcServer) ListCards(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cards := s.store.Cards()
	list := make([]any, 0, len(cards))
	for _, c := range cards {
		list = append(list, cardMap(c))
	}
	return structpb.NewStruct(map[string]any{
		"cards":            list,
		"totalOutstanding": s.store.TotalOutstanding().String(),
	})
}

// ListTransactions 沒有 cardId 時回傳所有交易，否則依 query / tab 篩選該卡交易
func (s *GrpcServer) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cardID := stringField(req, "cardId")
	var trans []domain.Transaction
	if cardID == "" {
		trans = s.store.Transactions()
	} else {
		trans = s.store.FilterCardTransactions(cardID, usecase.TransactionFilter{
			Query: stringField(req, "query"),
			Tab:   usecase.StatusTab(stringField(req, "tab")),
		})
	}
	return structpb.NewStruct(map[string]any{
		"transactions": transactionList(trans),
	})
}

func (s *GrpcServer) GetCardOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	today := s.now()
	if v := stringField(req, "today"); v != "" {
		t, err := time.ParseInLocation(DateLayout, v, time.Local)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "today must be YYYY-MM-DD")
		}
		today = t
	}
	overview, err := s.store.CardOverview(stringField(req, "id"), today)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(overviewMap(overview))
}

func (s *GrpcServer) GetSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	recent := defaultRecent
	if _, ok := req.GetFields()["recent"]; ok {
		n, err := intField(req, "recent")
		if err != nil {
			return nil, toStatus(err)
		}
		recent = n
	}
	return structpb.NewStruct(summaryMap(s.store.Summary(recent)))
}

// toStatus 將 domain 錯誤轉為 gRPC status
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrCardNotFound), errors.Is(err, domain.ErrTransactionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrPersistenceFailure):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

var _ TrackerServer = (*GrpcServer)(nil)
