package rdb

import "github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"

func fromCard(c domain.Card) sqlCard {
	return sqlCard{
		ID:        c.ID,
		Name:      c.Name,
		Bank:      c.Bank,
		Last4:     c.Last4,
		Theme:     string(c.Theme),
		Limit:     int64(c.Limit),
		BillDay:   c.BillDay,
		Used:      int64(c.Used),
		Available: int64(c.Available),
	}
}

func (r *sqlCard) toDomain() domain.Card {
	return domain.Card{
		ID:        r.ID,
		Name:      r.Name,
		Bank:      r.Bank,
		Last4:     r.Last4,
		Theme:     domain.Theme(r.Theme),
		Limit:     domain.Money(r.Limit),
		BillDay:   r.BillDay,
		Used:      domain.Money(r.Used),
		Available: domain.Money(r.Available),
	}
}

func fromTransaction(t domain.Transaction) sqlTransaction {
	return sqlTransaction{
		ID:          t.ID,
		CardID:      t.CardID,
		SpentBy:     t.SpentBy,
		Description: t.Description,
		Category:    string(t.Category),
		Amount:      int64(t.Amount),
		Date:        t.Date,
		Type:        string(t.Type),
		Status:      string(t.Status),
	}
}

func (r *sqlTransaction) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:          r.ID,
		CardID:      r.CardID,
		SpentBy:     r.SpentBy,
		Description: r.Description,
		Category:    domain.Category(r.Category),
		Amount:      domain.Money(r.Amount),
		Date:        r.Date,
		Type:        domain.TransactionType(r.Type),
		Status:      domain.Status(r.Status),
	}
}
