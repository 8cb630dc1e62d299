package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"sync"
)

const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀)
	FileModeDefault fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於個人帳務資料
	FileModePrivate fs.FileMode = 0600
)

// WAL 以 JSON Lines 格式追加寫入的記錄檔
type WAL struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open 開啟或建立一個 WAL 檔案
// O_RDWR 讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func Open(path string) (*WAL, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	return &WAL{path: path, file: file}, nil
}

func openFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
}

// Path 回傳檔案路徑
func (w *WAL) Path() string {
	return w.path
}

// Write 寫入一筆資料並刷入硬碟
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := json.NewEncoder(w.file).Encode(v); err != nil {
		return err
	}
	return w.file.Sync()
}

// ReadAll 從頭讀取所有資料
// callback 逐筆接收原始 JSON，避免一次將所有資料載入記憶體
// 最後一筆只寫了一半 (寫入途中當機) 時截掉該筆，其餘格式錯誤仍回傳 error
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var complete int64 // 最後一筆完整記錄結尾的位置
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, io.ErrUnexpectedEOF):
				return w.truncateTail(complete)
			default:
				return err
			}
		}
		if err := callback(raw); err != nil {
			return err
		}
		complete = decoder.InputOffset()
	}
}

// truncateTail 截掉 offset 之後不完整的記錄，呼叫端需持有 mu
func (w *WAL) truncateTail(offset int64) error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	if err := w.file.Truncate(offset); err != nil {
		return fmt.Errorf("truncate torn record: %w", err)
	}
	// offset 停在上一筆的 '}'，補回換行
	if offset > 0 {
		if _, err := w.file.Write([]byte("\n")); err != nil {
			return err
		}
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	log.Printf("WAL %s: dropped %d bytes of an incomplete record at offset %d", w.path, info.Size()-offset, offset)
	return nil
}

// Rewrite 以 records 取代整個檔案內容 (壓縮用)
// 先寫入暫存檔再 rename，中途失敗不會破壞原檔
func (w *WAL) Rewrite(records []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tmpPath := w.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, FileModePrivate)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		// 保留原檔繼續使用
		if file, openErr := openFile(w.path); openErr == nil {
			w.file = file
		}
		return fmt.Errorf("replace wal: %w", err)
	}
	file, err := openFile(w.path)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
