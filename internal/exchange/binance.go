package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tradebot/internal/models"
	"tradebot/pkg/utils"
)

// json - быстрый декодер для горячего пути рыночных данных
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	binanceFuturesBaseURL = "https://fapi.binance.com"
	binanceRecvWindow     = "5000"

	// Коды ошибок Binance с терминальной семантикой
	binanceCodeInsufficientBalance = -2010 // NEW_ORDER_REJECTED: balance
	binanceCodeInsufficientMargin  = -2019 // Margin is insufficient
)

// BinanceConfig содержит настройки клиента Binance Futures
type BinanceConfig struct {
	APIKey    string
	SecretKey string
	BaseURL   string  // пустое значение = продакшен
	RPS       float64 // лимит исходящих запросов в секунду (default: 10)
}

// Binance реализует интерфейс Exchange поверх Binance USDT-M Futures REST API
type Binance struct {
	apiKey    string
	secretKey string
	baseURL   string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger

	// Кэш фильтров символов (минимальный шаг объёма)
	stepMu    sync.RWMutex
	stepCache map[string]float64
}

var _ Exchange = (*Binance)(nil)

// NewBinance создаёт клиент Binance.
// Использует общий HTTP клиент с connection pooling.
func NewBinance(cfg BinanceConfig, logger zerolog.Logger) *Binance {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = binanceFuturesBaseURL
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 10
	}

	return &Binance{
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		baseURL:    baseURL,
		httpClient: GetGlobalHTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:     logger.With().Str("component", "binance").Logger(),
		stepCache:  make(map[string]float64),
	}
}

// sign создаёт HMAC-SHA256 подпись строки запроса
func (b *Binance) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest выполняет HTTP запрос к Binance API.
// Сетевые ошибки и 5xx/429 классифицируются как ErrExchangeUnavailable,
// нехватка средств как ErrInsufficientFunds.
func (b *Binance) doRequest(ctx context.Context, method, endpoint string, params url.Values, signed bool) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if params == nil {
		params = url.Values{}
	}

	if signed {
		params.Set("timestamp", strconv.FormatInt(utils.UnixMillis(), 10))
		params.Set("recvWindow", binanceRecvWindow)
		params.Set("signature", b.sign(params.Encode()))
	}

	query := params.Encode()
	reqURL := b.baseURL + endpoint
	var body io.Reader
	if method == http.MethodGet {
		if query != "" {
			reqURL += "?" + query
		}
	} else {
		body = strings.NewReader(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, err
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{
			Exchange: "binance",
			Message:  err.Error(),
			Original: fmt.Errorf("%w: %v", ErrExchangeUnavailable, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{
			Exchange: "binance",
			Message:  err.Error(),
			Original: fmt.Errorf("%w: %v", ErrExchangeUnavailable, err),
		}
	}

	if resp.StatusCode == http.StatusOK {
		return raw, nil
	}

	// Перегрузка или внутренняя ошибка биржи - временная
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ExchangeError{
			Exchange: "binance",
			Code:     resp.StatusCode,
			Message:  fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			Original: ErrExchangeUnavailable,
		}
	}

	var apiErr struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &apiErr); err != nil {
		return nil, &ExchangeError{
			Exchange: "binance",
			Code:     resp.StatusCode,
			Message:  strings.TrimSpace(string(raw)),
		}
	}

	original := error(nil)
	if apiErr.Code == binanceCodeInsufficientBalance || apiErr.Code == binanceCodeInsufficientMargin {
		original = ErrInsufficientFunds
	}

	return nil, &ExchangeError{
		Exchange: "binance",
		Code:     apiErr.Code,
		Message:  apiErr.Msg,
		Original: original,
	}
}

// GetPrice получает последнюю цену символа
func (b *Binance) GetPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	raw, err := b.doRequest(ctx, http.MethodGet, "/fapi/v1/ticker/price", params, false)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", resp.Price, err)
	}
	return price, nil
}

// GetOHLCV получает последние limit свечей.
// Binance отдаёт свечу как массив смешанных типов.
func (b *Binance) GetOHLCV(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	raw, err := b.doRequest(ctx, http.MethodGet, "/fapi/v1/klines", params, false)
	if err != nil {
		return nil, err
	}

	var rows [][]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}

		openTime, ok := row[0].(float64)
		if !ok {
			continue
		}

		c := models.Candle{OpenTime: utils.FromUnixMillis(int64(openTime))}
		fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		valid := true
		for i, dst := range fields {
			s, ok := row[i+1].(string)
			if !ok {
				valid = false
				break
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				valid = false
				break
			}
			*dst = v
		}
		if valid {
			candles = append(candles, c)
		}
	}

	return candles, nil
}

// GetTopTraderRatio получает соотношение long/short позиций топ-трейдеров.
// Значение > 1 означает перевес long.
func (b *Binance) GetTopTraderRatio(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("period", "5m")
	params.Set("limit", "1")

	raw, err := b.doRequest(ctx, http.MethodGet, "/futures/data/topLongShortPositionRatio", params, false)
	if err != nil {
		return 0, err
	}

	var resp []struct {
		Symbol         string `json:"symbol"`
		LongShortRatio string `json:"longShortRatio"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("decode top trader ratio: %w", err)
	}
	if len(resp) == 0 {
		return 0, fmt.Errorf("no top trader data for %s", symbol)
	}

	ratio, err := strconv.ParseFloat(resp[0].LongShortRatio, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ratio %q: %w", resp[0].LongShortRatio, err)
	}
	return ratio, nil
}

// SubmitOrder размещает рыночный ордер и возвращает подтверждённое исполнение
func (b *Binance) SubmitOrder(ctx context.Context, symbol, side string, quantity float64, orderType string) (*Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", orderType)
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Set("newOrderRespType", "RESULT")

	raw, err := b.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OrderID     int64  `json:"orderId"`
		Symbol      string `json:"symbol"`
		Side        string `json:"side"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		AvgPrice    string `json:"avgPrice"`
		UpdateTime  int64  `json:"updateTime"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	qty, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	price, _ := strconv.ParseFloat(resp.AvgPrice, 64)

	return &Fill{
		OrderID:   resp.OrderID,
		Symbol:    resp.Symbol,
		Side:      resp.Side,
		Quantity:  qty,
		Price:     price,
		Status:    resp.Status,
		Timestamp: utils.FromUnixMillis(resp.UpdateTime),
	}, nil
}

// GetBalance получает доступный баланс USDT фьючерсного аккаунта
func (b *Binance) GetBalance(ctx context.Context) (float64, error) {
	raw, err := b.doRequest(ctx, http.MethodGet, "/fapi/v2/balance", nil, true)
	if err != nil {
		return 0, err
	}

	var resp []struct {
		Asset            string `json:"asset"`
		AvailableBalance string `json:"availableBalance"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}

	for _, a := range resp {
		if a.Asset == "USDT" {
			balance, err := strconv.ParseFloat(a.AvailableBalance, 64)
			if err != nil {
				return 0, fmt.Errorf("parse balance %q: %w", a.AvailableBalance, err)
			}
			return balance, nil
		}
	}

	return 0, nil
}

// MinQtyStep возвращает шаг объёма символа из кэша фильтров.
// При отсутствии в кэше выполняет однократную синхронную загрузку;
// при её неудаче возвращает 0 (округление не применяется).
func (b *Binance) MinQtyStep(symbol string) float64 {
	b.stepMu.RLock()
	step, ok := b.stepCache[symbol]
	b.stepMu.RUnlock()
	if ok {
		return step
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.LoadSymbolFilters(ctx); err != nil {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to load symbol filters")
		return 0
	}

	b.stepMu.RLock()
	defer b.stepMu.RUnlock()
	return b.stepCache[symbol]
}

// LoadSymbolFilters загружает LOT_SIZE фильтры всех символов в кэш
func (b *Binance) LoadSymbolFilters(ctx context.Context) error {
	raw, err := b.doRequest(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false)
	if err != nil {
		return err
	}

	var resp struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode exchange info: %w", err)
	}

	b.stepMu.Lock()
	defer b.stepMu.Unlock()
	for _, s := range resp.Symbols {
		for _, f := range s.Filters {
			if f.FilterType != "LOT_SIZE" {
				continue
			}
			if step, err := strconv.ParseFloat(f.StepSize, 64); err == nil && step > 0 {
				b.stepCache[s.Symbol] = step
			}
		}
	}

	return nil
}

// Close закрывает idle соединения клиента
func (b *Binance) Close() error {
	CloseGlobalClient()
	return nil
}
