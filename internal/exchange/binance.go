package exchange

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"
	"triarb/internal/config"
	"triarb/internal/metrics"
	"triarb/internal/model"
)

const maxBackoff = 16 * time.Second

// BinanceClient implements the ExchangeClient interface for Binance spot.
type BinanceClient struct {
	logger  *slog.Logger
	restURL string
	wsURL   string
	http    *http.Client
	dialer  *websocket.Dialer
}

// NewBinanceClient creates a new BinanceClient.
func NewBinanceClient(logger *slog.Logger, cfg *config.ExchangeConfig) *BinanceClient {
	return &BinanceClient{
		logger:  logger,
		restURL: cfg.RestURL,
		wsURL:   cfg.WSURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (b *BinanceClient) GetName() string {
	return "binance"
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
		Filters    []struct {
			FilterType string `json:"filterType"`
			StepSize   string `json:"stepSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

// FetchInstruments downloads exchangeInfo. Symbols with status TRADING are active.
func (b *BinanceClient) FetchInstruments(ctx context.Context) ([]model.Instrument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.restURL+"/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch exchange info: status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read exchange info: %w", err)
	}

	var info exchangeInfo
	if err := sonnet.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode exchange info: %w", err)
	}

	out := make([]model.Instrument, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		in := model.Instrument{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Active:     s.Status == "TRADING",
		}
		for _, f := range s.Filters {
			if f.FilterType != "LOT_SIZE" {
				continue
			}
			step, err := decimal.NewFromString(f.StepSize)
			if err != nil {
				return nil, fmt.Errorf("symbol %s: lot step %q: %w", s.Symbol, f.StepSize, err)
			}
			in.LotStep = step.InexactFloat64()
		}
		out = append(out, in)
	}
	b.logger.Info("BinanceClient: instruments fetched", "total", len(out))
	return out, nil
}

// StartStream connects to the all-market book ticker stream and forwards quotes.
func (b *BinanceClient) StartStream(ctx context.Context, quoteChan chan<- model.QuoteEvent, symbolIDs map[string]uint32) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("BinanceClient: context cancelled, shutting down")
			return nil
		default:
		}

		b.logger.Info("BinanceClient: connecting to WebSocket", "url", b.wsURL, "backoff", backoff)
		c, _, err := b.dialer.DialContext(ctx, b.wsURL, nil)
		if err != nil {
			b.logger.Error("BinanceClient: WebSocket connection failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			}
			metrics.FeedReconnectsTotal.WithLabelValues(b.GetName()).Inc()
			continue
		}

		// Reset backoff on successful connection
		backoff = time.Second
		b.logger.Info("BinanceClient: connected successfully")

		err = b.readLoop(ctx, c, quoteChan, symbolIDs)
		c.Close()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		metrics.FeedReconnectsTotal.WithLabelValues(b.GetName()).Inc()
	}
}

// readLoop returns nil when the connection drops or ctx ends, and an error for
// malformed data.
func (b *BinanceClient) readLoop(ctx context.Context, c *websocket.Conn, quoteChan chan<- model.QuoteEvent, symbolIDs map[string]uint32) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Error("BinanceClient: failed to read message", "error", err)
			}
			return nil
		}

		ev, ok, err := ParseBookTicker(message, symbolIDs)
		if err != nil {
			b.logger.Error("BinanceClient: malformed book ticker", "error", err)
			return err
		}
		if !ok {
			continue
		}
		ev.Received = time.Now()

		select {
		case quoteChan <- ev:
		case <-ctx.Done():
			b.logger.Info("BinanceClient: context cancelled while sending quote")
			return nil
		}
	}
}

// ParseBookTicker decodes a bookTicker frame, raw or wrapped in a combined-stream
// envelope. ok is false for frames that are not book tickers and for symbols not
// in symbolIDs.
func ParseBookTicker(message []byte, symbolIDs map[string]uint32) (ev model.QuoteEvent, ok bool, err error) {
	var tickerData map[string]interface{}
	if err := sonnet.Unmarshal(message, &tickerData); err != nil {
		return ev, false, fmt.Errorf("%w: %v", ErrMalformedQuote, err)
	}
	if data, isEnvelope := tickerData["data"].(map[string]interface{}); isEnvelope {
		tickerData = data
	}

	symbol, isTicker := tickerData["s"].(string)
	if !isTicker {
		return ev, false, nil
	}
	id, known := symbolIDs[symbol]
	if !known {
		return ev, false, nil
	}

	var fields [4]float64
	for i, key := range [4]string{"a", "A", "b", "B"} {
		raw, present := tickerData[key].(string)
		if !present {
			return ev, false, fmt.Errorf("%w: %s: field %q missing", ErrMalformedQuote, symbol, key)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ev, false, fmt.Errorf("%w: %s: field %q: %v", ErrMalformedQuote, symbol, key, err)
		}
		fields[i] = f
	}

	ev.Quote = model.Quote{
		PairID: id,
		Ask:    model.Level{Price: fields[0], Qty: fields[1]},
		Bid:    model.Level{Price: fields[2], Qty: fields[3]},
	}
	return ev, true, nil
}
