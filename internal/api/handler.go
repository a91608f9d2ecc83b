package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amirphl/intraday-backtester/internal/backtest"
	"github.com/amirphl/intraday-backtester/internal/config"
)

// BacktestService is what the handlers need from Service.
type BacktestService interface {
	Run(ctx context.Context, symbol string, days int) (*RunRecord, error)
	Results() map[string]backtest.SymbolResult
	Performance() (*backtest.OverallPerformance, error)
	Watchlist() []config.WatchlistEntry
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	svc BacktestService
}

func NewHandler(svc BacktestService) *Handler {
	return &Handler{svc: svc}
}

// RunBacktest runs the strategy over one symbol or the whole watchlist.
//
// POST /api/backtest/run?symbol=TCS&days=30
func (h *Handler) RunBacktest(c *gin.Context) {
	days := 0
	if q := c.Query("days"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days must be a positive integer"})
			return
		}
		days = v
	}

	rec, err := h.svc.Run(c.Request.Context(), c.Query("symbol"), days)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidDays) {
			status = http.StatusBadRequest
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GET /api/backtest/results
func (h *Handler) Results(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.svc.Results()})
}

// GET /api/strategy/performance
func (h *Handler) Performance(c *gin.Context) {
	perf, err := h.svc.Performance()
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, perf)
}

// GET /api/watchlist
func (h *Handler) Watchlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"watchlist": h.svc.Watchlist()})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
