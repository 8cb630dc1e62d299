package domain

import "time"

// DueAfterDays 帳單日之後多少天為繳款截止日
const DueAfterDays = 15

// BillCycle 下一期帳單日與繳款截止日
type BillCycle struct {
	BillDate time.Time `json:"billDate"`
	DueDate  time.Time `json:"dueDate"`
}

// NextBillCycle 計算下一期帳單
//
// 今天的日期 <= billDay 時帳單在本月，否則在下個月。
// 當月沒有 billDay 那一天 (如 31 號遇到 30 天的月份) 時取該月最後一天，不會溢出到下個月。
// 繳款截止日固定為帳單日 + 15 天。
//
// 參數:
//
//	today: 今天 (只使用年月日與時區)
//	billDay: 帳單日 1~31
//
// 回傳:
//
//	BillCycle: 帳單日與截止日，皆為當天 00:00
func NextBillCycle(today time.Time, billDay int) BillCycle {
	year, month, day := today.Date()
	if day > billDay {
		month++
	}
	billDate := clampedDate(year, month, billDay, today.Location())
	return BillCycle{
		BillDate: billDate,
		DueDate:  billDate.AddDate(0, 0, DueAfterDays),
	}
}

// clampedDate 回傳指定年月的第 day 天，超過當月天數時取最後一天
// month 可以是 13 (time.Date 會正規化為隔年一月)
func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
