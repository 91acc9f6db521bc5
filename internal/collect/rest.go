package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"

	"pulsedesk/internal/model"
)

const restTimeout = 10 * time.Second

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request "+url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("request %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode "+url)
	}
	return nil
}

// BinanceRest serves USD-leg quotes and derivatives data over the exchange
// REST API.
type BinanceRest struct {
	spotURL    string
	futuresURL string
	http       *http.Client
}

func NewBinanceRest() *BinanceRest {
	return &BinanceRest{
		spotURL:    "https://api.binance.com",
		futuresURL: "https://fapi.binance.com",
		http:       &http.Client{Timeout: restTimeout},
	}
}

func (b *BinanceRest) FetchQuote(ctx context.Context, symbol string) (Quote, error) {
	var raw struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		Volume             string `json:"volume"`
	}
	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%sUSDT", b.spotURL, strings.ToUpper(symbol))
	if err := getJSON(ctx, b.http, url, &raw); err != nil {
		return Quote{}, err
	}

	price, err := strconv.ParseFloat(raw.LastPrice, 64)
	if err != nil {
		return Quote{}, errors.Wrap(err, "parse lastPrice")
	}
	change, _ := strconv.ParseFloat(raw.PriceChangePercent, 64)
	volume, _ := strconv.ParseFloat(raw.Volume, 64)
	return Quote{Price: price, Change24h: change, Volume: volume}, nil
}

func (b *BinanceRest) FetchFundingRate(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var raw struct {
		LastFundingRate decimal.Decimal `json:"lastFundingRate"`
	}
	url := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%sUSDT", b.futuresURL, strings.ToUpper(symbol))
	if err := getJSON(ctx, b.http, url, &raw); err != nil {
		return raw.LastFundingRate, err
	}
	return raw.LastFundingRate, nil
}

func (b *BinanceRest) FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var raw struct {
		OpenInterest decimal.Decimal `json:"openInterest"`
	}
	url := fmt.Sprintf("%s/fapi/v1/openInterest?symbol=%sUSDT", b.futuresURL, strings.ToUpper(symbol))
	if err := getJSON(ctx, b.http, url, &raw); err != nil {
		return raw.OpenInterest, err
	}
	return raw.OpenInterest, nil
}

// UpbitRest serves the KRW leg of the premium calculation.
type UpbitRest struct {
	baseURL string
	http    *http.Client
}

func NewUpbitRest() *UpbitRest {
	return &UpbitRest{
		baseURL: "https://api.upbit.com",
		http:    &http.Client{Timeout: restTimeout},
	}
}

func (u *UpbitRest) FetchQuote(ctx context.Context, symbol string) (Quote, error) {
	var raw []struct {
		TradePrice       float64 `json:"trade_price"`
		SignedChangeRate float64 `json:"signed_change_rate"`
		AccTradeVolume   float64 `json:"acc_trade_volume_24h"`
	}
	url := fmt.Sprintf("%s/v1/ticker?markets=KRW-%s", u.baseURL, strings.ToUpper(symbol))
	if err := getJSON(ctx, u.http, url, &raw); err != nil {
		return Quote{}, err
	}
	if len(raw) == 0 {
		return Quote{}, errors.Errorf("no ticker for KRW-%s", symbol)
	}
	return Quote{
		Price:     raw[0].TradePrice,
		Change24h: raw[0].SignedChangeRate * 100,
		Volume:    raw[0].AccTradeVolume,
	}, nil
}

// FearGreedRest polls the alternative.me fear & greed index.
type FearGreedRest struct {
	baseURL string
	http    *http.Client
}

func NewFearGreedRest() *FearGreedRest {
	return &FearGreedRest{
		baseURL: "https://api.alternative.me",
		http:    &http.Client{Timeout: restTimeout},
	}
}

func (f *FearGreedRest) FetchSentiment(ctx context.Context) (*Sentiment, error) {
	var raw struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := getJSON(ctx, f.http, f.baseURL+"/fng/", &raw); err != nil {
		return nil, err
	}
	if len(raw.Data) == 0 {
		return nil, nil
	}

	value, err := strconv.Atoi(raw.Data[0].Value)
	if err != nil {
		return nil, nil
	}
	ts, _ := strconv.ParseInt(raw.Data[0].Timestamp, 10, 64)
	return &Sentiment{
		Value:          value,
		Classification: raw.Data[0].Classification,
		Timestamp:      time.Unix(ts, 0),
	}, nil
}

// NewsRest polls the CryptoCompare news feed.
type NewsRest struct {
	baseURL string
	http    *http.Client
}

func NewNewsRest() *NewsRest {
	return &NewsRest{
		baseURL: "https://min-api.cryptocompare.com",
		http:    &http.Client{Timeout: restTimeout},
	}
}

func (n *NewsRest) FetchNews(ctx context.Context) ([]model.FeedItem, error) {
	var raw struct {
		Data []struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			URL        string `json:"url"`
			Body       string `json:"body"`
			Categories string `json:"categories"`
			Source     string `json:"source"`
			Published  int64  `json:"published_on"`
		} `json:"Data"`
	}
	if err := getJSON(ctx, n.http, n.baseURL+"/data/v2/news/?lang=EN", &raw); err != nil {
		return nil, err
	}

	items := make([]model.FeedItem, 0, len(raw.Data))
	for _, entry := range raw.Data {
		category := entry.Categories
		if i := strings.IndexByte(category, '|'); i >= 0 {
			category = category[:i]
		}
		items = append(items, model.FeedItem{
			ID:        entry.ID,
			Title:     entry.Title,
			Source:    entry.Source,
			URL:       entry.URL,
			Category:  category,
			Summary:   entry.Body,
			Timestamp: time.Unix(entry.Published, 0),
		})
	}
	return items, nil
}

// FxRest fetches cross rates from the open exchange-rate API.
type FxRest struct {
	baseURL string
	http    *http.Client
}

func NewFxRest() *FxRest {
	return &FxRest{
		baseURL: "https://open.er-api.com",
		http:    &http.Client{Timeout: restTimeout},
	}
}

func (f *FxRest) FetchFxRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	var raw struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	var zero decimal.Decimal
	url := fmt.Sprintf("%s/v6/latest/%s", f.baseURL, strings.ToUpper(base))
	if err := getJSON(ctx, f.http, url, &raw); err != nil {
		return zero, err
	}
	rate, ok := raw.Rates[strings.ToUpper(quote)]
	if !ok {
		return zero, errors.Errorf("no %s/%s rate in response", base, quote)
	}
	return rate, nil
}
