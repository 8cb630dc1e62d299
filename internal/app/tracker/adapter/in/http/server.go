package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/domain"
	"github.com/JoeShih716/go-card-ledger/internal/app/tracker/usecase"
)

const dateLayout = "2006-01-02"

type Server struct {
	store *usecase.Store
	now   func() time.Time
}

// NewRouter 建立 JSON API 的 gin Engine
//
// 參數:
//
//	store: 帳本
//	allowOrigins: CORS 允許的來源，空字串表示不加 CORS header
func NewRouter(store *usecase.Store, allowOrigins string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging())
	if allowOrigins != "" {
		r.Use(cors(allowOrigins))
	}

	s := &Server{store: store, now: time.Now}
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/v1")
	{
		api.GET("/cards", s.listCards)
		api.POST("/cards", s.addCard)
		api.GET("/cards/:id", s.cardOverview)
		api.DELETE("/cards/:id", s.deleteCard)
		api.GET("/cards/:id/transactions", s.cardTransactions)

		api.GET("/transactions", s.listTransactions)
		api.POST("/transactions", s.addTransaction)
		api.GET("/transactions/:id", s.getTransaction)
		api.POST("/transactions/:id/settle", s.settleTransaction)

		api.GET("/summary", s.summary)
		api.GET("/categories", s.categories)
	}
	return r
}

func (s *Server) listCards(c *gin.Context) {
	cards := s.store.Cards()
	out := make([]cardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, newCardResponse(card))
	}
	c.JSON(http.StatusOK, gin.H{
		"cards":            out,
		"totalOutstanding": s.store.TotalOutstanding().String(),
	})
}

func (s *Server) addCard(c *gin.Context) {
	var req addCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		writeError(c, err)
		return
	}
	card, err := s.store.AddCard(c.Request.Context(), spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCardResponse(card))
}

func (s *Server) cardOverview(c *gin.Context) {
	today := s.now()
	if v := c.Query("today"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "today must be YYYY-MM-DD"})
			return
		}
		today = t
	}
	overview, err := s.store.CardOverview(c.Param("id"), today)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOverviewResponse(overview))
}

func (s *Server) deleteCard(c *gin.Context) {
	if err := s.store.DeleteCard(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) cardTransactions(c *gin.Context) {
	trans := s.store.FilterCardTransactions(c.Param("id"), usecase.TransactionFilter{
		Query: c.Query("q"),
		Tab:   usecase.StatusTab(c.Query("tab")),
	})
	c.JSON(http.StatusOK, gin.H{"transactions": newTransactionResponses(trans)})
}

func (s *Server) listTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transactions": newTransactionResponses(s.store.Transactions())})
}

func (s *Server) addTransaction(c *gin.Context) {
	var req addTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		writeError(c, err)
		return
	}
	tran, err := s.store.AddTransaction(c.Request.Context(), spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTransactionResponse(tran))
}

func (s *Server) getTransaction(c *gin.Context) {
	tran, ok := s.store.Transaction(c.Param("id"))
	if !ok {
		writeError(c, domain.ErrTransactionNotFound)
		return
	}
	c.JSON(http.StatusOK, newTransactionResponse(tran))
}

// settleTransaction 結清是冪等的，找不到交易時同樣回傳 204
func (s *Server) settleTransaction(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.SettleTransaction(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	tran, ok := s.store.Transaction(id)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, newTransactionResponse(tran))
}

func (s *Server) summary(c *gin.Context) {
	recent := 5
	if v := c.Query("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recent must be a non-negative integer"})
			return
		}
		recent = n
	}
	c.JSON(http.StatusOK, newSummaryResponse(s.store.Summary(recent)))
}

// categories 回傳可選的分類與卡片主題，供前端下拉選單使用
func (s *Server) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": domain.Categories,
		"themes":     domain.Themes,
	})
}

// writeError 依錯誤種類回傳對應的 HTTP 狀態碼
func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrCardNotFound), errors.Is(err, domain.ErrTransactionNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrPersistenceFailure):
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func cors(allowOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
