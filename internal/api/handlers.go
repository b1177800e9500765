package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ashare/internal/errors"
	"ashare/internal/indicator"
	"ashare/internal/market"
	"ashare/internal/market/store"
	"ashare/internal/sector/workflow"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// IndexHandler serves the read-only sector index catalog.
type IndexHandler struct {
	store *store.Store
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(st *store.Store) *IndexHandler {
	return &IndexHandler{store: st}
}

// ListIndexes returns every published index with its date coverage.
func (h *IndexHandler) ListIndexes(c *gin.Context) {
	summaries, err := h.store.ListIndexes(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summaries})
}

// GetIndexBars returns the published bars of one index, optionally limited
// to a [start, end] window via query parameters.
func (h *IndexHandler) GetIndexBars(c *gin.Context) {
	indexCode := c.Param("code")

	start, end, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	bars, err := h.store.GetIndexBars(c.Request.Context(), indexCode, start, end)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no bars for index " + indexCode})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: bars})
}

// GetIndexIndicators computes a technical indicator series over one index's
// published bars. Supported names: ma, ema, macd, kdj, boll, rsi, atr,
// bias, roc.
func (h *IndexHandler) GetIndexIndicators(c *gin.Context) {
	indexCode := c.Param("code")
	name := c.DefaultQuery("name", "ma")
	period, err := strconv.Atoi(c.DefaultQuery("period", "20"))
	if err != nil || period <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid period"})
		return
	}

	start, end, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	bars, err := h.store.GetIndexBars(c.Request.Context(), indexCode, start, end)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no bars for index " + indexCode})
		return
	}

	series, err := computeIndicator(name, period, bars)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	dates := make([]string, len(bars))
	for i, bar := range bars {
		dates[i] = market.FormatDate(bar.TradeDate)
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"index_code": indexCode,
		"indicator":  name,
		"period":     period,
		"dates":      dates,
		"series":     series,
	}})
}

// computeIndicator evaluates one indicator over index bars. NaN leading
// values are serialized as nulls so JSON stays valid.
func computeIndicator(name string, period int, bars []market.IndexBar) (map[string][]*float64, error) {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		highs[i], lows[i], closes[i] = bar.High, bar.Low, bar.Close
	}

	switch name {
	case "ma":
		return jsonSeries(map[string][]float64{"ma": indicator.MA(closes, period)}), nil
	case "ema":
		return jsonSeries(map[string][]float64{"ema": indicator.EMA(closes, period)}), nil
	case "macd":
		dif, dea, hist := indicator.MACD(closes, 12, 26, 9)
		return jsonSeries(map[string][]float64{"dif": dif, "dea": dea, "macd": hist}), nil
	case "kdj":
		k, d, j := indicator.KDJ(highs, lows, closes, period)
		return jsonSeries(map[string][]float64{"k": k, "d": d, "j": j}), nil
	case "boll":
		upper, middle, lower := indicator.BOLL(closes, period, 2)
		return jsonSeries(map[string][]float64{"upper": upper, "middle": middle, "lower": lower}), nil
	case "rsi":
		return jsonSeries(map[string][]float64{"rsi": indicator.RSI(closes, period)}), nil
	case "atr":
		return jsonSeries(map[string][]float64{"atr": indicator.ATR(highs, lows, closes, period)}), nil
	case "bias":
		return jsonSeries(map[string][]float64{"bias": indicator.BIAS(closes, period)}), nil
	case "roc":
		return jsonSeries(map[string][]float64{"roc": indicator.ROC(closes, period)}), nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown indicator "+name)
	}
}

func jsonSeries(raw map[string][]float64) map[string][]*float64 {
	out := make(map[string][]*float64, len(raw))
	for name, values := range raw {
		series := make([]*float64, len(values))
		for i := range values {
			if !math.IsNaN(values[i]) {
				v := values[i]
				series[i] = &v
			}
		}
		out[name] = series
	}
	return out
}

// UpdateHandler exposes the maintenance pipeline behind authentication.
type UpdateHandler struct {
	workflow *workflow.Workflow
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(wf *workflow.Workflow) *UpdateHandler {
	return &UpdateHandler{workflow: wf}
}

// TriggerUpdate runs one incremental maintenance pass and returns its
// summary. The run is synchronous; a typical pass over a fresh catalog
// completes in seconds because each index only extends by a few dates.
func (h *UpdateHandler) TriggerUpdate(c *gin.Context) {
	summary, err := h.workflow.UpdateAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// RebuildCatalog cold-starts the full catalog up to the latest stored
// trade date.
func (h *UpdateHandler) RebuildCatalog(c *gin.Context) {
	ctx := c.Request.Context()

	latest, ok, err := h.workflow.Store().LatestTradeDate(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, Response{Success: false, Error: "no stock data loaded"})
		return
	}

	written, err := h.workflow.BuildCatalog(ctx, latest)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"indexes_written": written}})
}

// AuthHandler issues API tokens.
type AuthHandler struct {
	jwtManager *JWTManager
	username   string
	password   string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtManager *JWTManager, username, password string) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager, username: username, password: password}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

// Login authenticates against the configured credentials and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	if h.password == "" || req.Username != h.username || req.Password != h.password {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid credentials"})
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Username:    req.Username,
	}})
}

// parseDateRange reads optional start/end query parameters; the default
// window covers the whole published history.
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Now().UTC()

	if v := c.Query("start"); v != "" {
		parsed, err := market.ParseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid start date")
		}
		start = parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := market.ParseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid end date")
		}
		end = parsed
	}
	return start, end, nil
}

// abortWithError maps application errors onto HTTP status codes.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}
