package grpc

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
)

// DateLayout "today" 參數的格式
const DateLayout = "2006-01-02"

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// intField 欄位不存在時回傳 0；必須是 int32 範圍內的整數
func intField(req *structpb.Struct, key string) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	num, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
	}
	f := num.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
	}
	return int(f), nil
}

// moneyField 金額可以是字串 ("1200.50") 或數字
func moneyField(req *structpb.Struct, key string) (domain.Money, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return domain.ParseMoney(kind.StringValue)
	case *structpb.Value_NumberValue:
		return domain.MoneyFromDecimal(decimal.NewFromFloat(kind.NumberValue))
	default:
		return 0, fmt.Errorf("%w: %s must be a decimal string", domain.ErrInvalidInput, key)
	}
}

// timeField 接受 RFC3339 字串，空字串回傳零值
func timeField(req *structpb.Struct, key string) (time.Time, error) {
	s := stringField(req, key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", domain.ErrInvalidInput, key)
	}
	return t, nil
}

func cardSpecFrom(req *structpb.Struct) (domain.CardSpec, error) {
	limit, err := moneyField(req, "limit")
	if err != nil {
		return domain.CardSpec{}, err
	}
	billDay, err := intField(req, "billDay")
	if err != nil {
		return domain.CardSpec{}, err
	}
	return domain.CardSpec{
		Name:    stringField(req, "name"),
		Bank:    stringField(req, "bank"),
		Last4:   stringField(req, "last4"),
		Limit:   limit,
		BillDay: billDay,
		Theme:   domain.Theme(stringField(req, "theme")),
	}, nil
}

func transactionSpecFrom(req *structpb.Struct) (domain.TransactionSpec, error) {
	amount, err := moneyField(req, "amount")
	if err != nil {
		return domain.TransactionSpec{}, err
	}
	date, err := timeField(req, "date")
	if err != nil {
		return domain.TransactionSpec{}, err
	}
	status := domain.Status(stringField(req, "status"))
	if status == "" {
		status = domain.StatusUnpaid
	}
	typ := domain.TransactionType(stringField(req, "type"))
	if typ == "" {
		typ = domain.TransactionTypeExpense
	}
	return domain.TransactionSpec{
		CardID:      stringField(req, "cardId"),
		SpentBy:     stringField(req, "spentBy"),
		Description: stringField(req, "description"),
		Category:    domain.Category(stringField(req, "category")),
		Amount:      amount,
		Type:        typ,
		Status:      status,
		Date:        date,
	}, nil
}

func cardMap(c domain.Card) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"name":      c.Name,
		"bank":      c.Bank,
		"last4":     c.Last4,
		"theme":     string(c.Theme),
		"limit":     c.Limit.String(),
		"billDay":   c.BillDay,
		"used":      c.Used.String(),
		"available": c.Available.String(),
	}
}

func transactionMap(t domain.Transaction) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"cardId":      t.CardID,
		"spentBy":     t.SpentBy,
		"description": t.Description,
		"category":    string(t.Category),
		"amount":      t.Amount.String(),
		"date":        t.Date.Format(time.RFC3339),
		"type":        string(t.Type),
		"status":      string(t.Status),
	}
}

func transactionList(trans []domain.Transaction) []any {
	out := make([]any, 0, len(trans))
	for _, t := range trans {
		out = append(out, transactionMap(t))
	}
	return out
}

func overviewMap(o usecase.CardOverview) map[string]any {
	return map[string]any{
		"card":        cardMap(o.Card),
		"billDate":    o.Cycle.BillDate.Format(DateLayout),
		"dueDate":     o.Cycle.DueDate.Format(DateLayout),
		"utilization": o.Utilization.StringFixed(1),
		"unpaid":      o.Unpaid.String(),
	}
}

func summaryMap(s usecase.Summary) map[string]any {
	return map[string]any{
		"cardCount":        s.CardCount,
		"totalLimit":       s.TotalLimit.String(),
		"totalOutstanding": s.TotalOutstanding.String(),
		"utilization":      s.Utilization.StringFixed(1),
		"recent":           transactionList(s.Recent),
	}
}
