package domain

import "errors"

var (
	// ErrCardNotFound 找不到信用卡
	ErrCardNotFound = errors.New("card not found, select a valid card")

	// ErrTransactionNotFound 找不到交易
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidInput 輸入資料不合法 (額度非正數、帳單日超出範圍...)
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistenceFailure 儲存層無法寫入變更
	// 注意：回傳此錯誤時記憶體中的狀態已經更新
	ErrPersistenceFailure = errors.New("persistence failure")
)
