package exchange

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"triarb/internal/config"
	"triarb/internal/model"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const exchangeInfoBody = `{
  "timezone": "UTC",
  "symbols": [
    {"symbol": "ETHBTC", "status": "TRADING", "baseAsset": "ETH", "quoteAsset": "BTC",
     "filters": [{"filterType": "PRICE_FILTER", "tickSize": "0.00001000"},
                 {"filterType": "LOT_SIZE", "minQty": "0.00010000", "stepSize": "0.00010000"}]},
    {"symbol": "LUNABTC", "status": "BREAK", "baseAsset": "LUNA", "quoteAsset": "BTC",
     "filters": [{"filterType": "LOT_SIZE", "stepSize": "1.00000000"}]}
  ]
}`

func TestBinanceClient_FetchInstruments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		_, _ = w.Write([]byte(exchangeInfoBody))
	}))
	defer srv.Close()

	client := NewBinanceClient(testLogger, &config.ExchangeConfig{RestURL: srv.URL})
	instruments, err := client.FetchInstruments(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.Instrument{
		{Symbol: "ETHBTC", BaseAsset: "ETH", QuoteAsset: "BTC", LotStep: 0.0001, Active: true},
		{Symbol: "LUNABTC", BaseAsset: "LUNA", QuoteAsset: "BTC", LotStep: 1, Active: false},
	}, instruments)
}

func TestBinanceClient_FetchInstrumentsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "banned", http.StatusTeapot)
	}))
	defer srv.Close()

	client := NewBinanceClient(testLogger, &config.ExchangeConfig{RestURL: srv.URL})
	_, err := client.FetchInstruments(context.Background())
	assert.Error(t, err)
}

func TestParseBookTicker(t *testing.T) {
	ids := map[string]uint32{"ETHBTC": 3}

	t.Run("raw frame", func(t *testing.T) {
		ev, ok, err := ParseBookTicker([]byte(`{"u":400900217,"s":"ETHBTC","b":"0.0490","B":"31.2","a":"0.0500","A":"40.6"}`), ids)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, model.Quote{
			PairID: 3,
			Ask:    model.Level{Price: 0.05, Qty: 40.6},
			Bid:    model.Level{Price: 0.049, Qty: 31.2},
		}, ev.Quote)
	})

	t.Run("combined stream envelope", func(t *testing.T) {
		ev, ok, err := ParseBookTicker([]byte(`{"stream":"ethbtc@bookTicker","data":{"s":"ETHBTC","b":"1","B":"2","a":"3","A":"4"}}`), ids)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3.0, ev.Ask.Price)
	})

	t.Run("unknown symbol dropped", func(t *testing.T) {
		_, ok, err := ParseBookTicker([]byte(`{"s":"DOGEBTC","b":"1","B":"2","a":"3","A":"4"}`), ids)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("subscription ack ignored", func(t *testing.T) {
		_, ok, err := ParseBookTicker([]byte(`{"result":null,"id":1}`), ids)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bad number", func(t *testing.T) {
		_, _, err := ParseBookTicker([]byte(`{"s":"ETHBTC","b":"x","B":"2","a":"3","A":"4"}`), ids)
		assert.True(t, errors.Is(err, ErrMalformedQuote))
	})

	t.Run("missing field", func(t *testing.T) {
		_, _, err := ParseBookTicker([]byte(`{"s":"ETHBTC","b":"1","B":"2","a":"3"}`), ids)
		assert.True(t, errors.Is(err, ErrMalformedQuote))
	})

	t.Run("invalid json", func(t *testing.T) {
		_, _, err := ParseBookTicker([]byte(`{"s":`), ids)
		assert.True(t, errors.Is(err, ErrMalformedQuote))
	})
}

func wsServer(t *testing.T, frames ...string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		for _, f := range frames {
			if err := c.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		_, _, _ = c.ReadMessage()
	}))
}

func TestBinanceClient_StartStream(t *testing.T) {
	srv := wsServer(t,
		`{"s":"DOGEBTC","b":"1","B":"1","a":"1","A":"1"}`,
		`{"s":"ETHBTC","b":"0.049","B":"1","a":"0.05","A":"2"}`,
	)
	defer srv.Close()

	cfg := &config.ExchangeConfig{WSURL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	client := NewBinanceClient(testLogger, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	quotes := make(chan model.QuoteEvent, 4)
	done := make(chan error, 1)
	go func() { done <- client.StartStream(ctx, quotes, map[string]uint32{"ETHBTC": 1}) }()

	select {
	case ev := <-quotes:
		assert.Equal(t, uint32(1), ev.PairID)
		assert.Equal(t, 0.05, ev.Ask.Price)
		assert.False(t, ev.Received.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no quote received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}
	assert.Empty(t, quotes)
}

func TestBinanceClient_StartStreamMalformed(t *testing.T) {
	srv := wsServer(t, `{"s":"ETHBTC","b":"NaN?","B":"1","a":"0.05","A":"2"}`)
	defer srv.Close()

	cfg := &config.ExchangeConfig{WSURL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	client := NewBinanceClient(testLogger, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := client.StartStream(ctx, make(chan model.QuoteEvent, 1), map[string]uint32{"ETHBTC": 1})
	assert.True(t, errors.Is(err, ErrMalformedQuote))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("binance", testLogger, &config.ExchangeConfig{})
	require.NoError(t, err)
	assert.Equal(t, "binance", c.GetName())

	_, err = NewClient("kraken", testLogger, &config.ExchangeConfig{})
	assert.Error(t, err)
}
