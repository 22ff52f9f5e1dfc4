// Package cbr reads daily exchange rates from the Central Bank of Russia XML feed.
package cbr

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"

	"github.com/m3rciful/cbrbot/bots/cbr/currency"
	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/metrics"
	"github.com/m3rciful/cbrbot/core/netutil"
)

const (
	// DefaultURL is the CBR daily rates document.
	DefaultURL     = "https://www.cbr.ru/scripts/XML_daily.asp"
	defaultTimeout = 10 * time.Second
	userAgent      = "cbrbot/1.0"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client fetches the feed once per Rate call. Nothing is cached and failed
// calls are not retried.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
}

// NewClient builds a Client.
func NewClient(opts Options) *Client {
	c := &Client{url: opts.URL, timeout: opts.Timeout, http: opts.HTTPClient}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	ID       string `xml:"ID,attr"`
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

// Rate returns the ruble price of one unit of cur. Failures are *FetchError.
func (c *Client) Rate(ctx context.Context, cur currency.Currency) (decimal.Decimal, error) {
	start := time.Now()
	rate, err := c.fetch(ctx, cur)
	took := time.Since(start)
	metrics.ObserveRateFetch(string(cur.Code), err, took)

	if err != nil {
		code := "cbr_fetch"
		var fe *FetchError
		if errors.As(err, &fe) {
			code = fe.Code()
		}
		attrs := []slog.Attr{
			slog.String("event", "rates.fetch"),
			slog.String("status", "fail"),
			slog.String("currency", string(cur.Code)),
			slog.String("url", c.url),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
			slog.String("err_code", code),
		}
		if kind := netutil.Kind(err); kind != netutil.KindOther {
			attrs = append(attrs, slog.String("net_err", kind))
		}
		logger.Rates.LogAttrs(ctx, slog.LevelError, "rate fetch failed", attrs...)
		return decimal.Zero, err
	}
	logger.Rates.LogAttrs(ctx, slog.LevelDebug, "rate fetched",
		slog.String("event", "rates.fetch"),
		slog.String("status", "ok"),
		slog.String("currency", string(cur.Code)),
		slog.String("rate", rate.String()),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return rate, nil
}

func (c *Client) fetch(ctx context.Context, cur currency.Currency) (decimal.Decimal, error) {
	fail := func(op string, err error) (decimal.Decimal, error) {
		return decimal.Zero, &FetchError{Currency: cur.Code, Op: op, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fail("request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail("status", fmt.Errorf("unexpected status %s", resp.Status))
	}

	// The feed is windows-1251 encoded and says so in the XML prolog.
	dec := xml.NewDecoder(resp.Body)
	dec.CharsetReader = charset.NewReaderLabel
	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return fail("decode", err)
	}

	for _, v := range doc.Valutes {
		if v.ID != cur.CBRID {
			continue
		}
		return parseValue(cur, v)
	}
	return fail("lookup", ErrRateNotFound)
}

func parseValue(cur currency.Currency, v valute) (decimal.Decimal, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(v.Value, ",", "."))
	if raw == "" {
		return decimal.Zero, &FetchError{Currency: cur.Code, Op: "lookup", Err: ErrRateNotFound}
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &FetchError{Currency: cur.Code, Op: "parse", Err: err}
	}
	// Value is quoted per Nominal units (e.g. 10 or 100 for weaker currencies).
	if n, err := decimal.NewFromString(strings.TrimSpace(v.Nominal)); err == nil && n.GreaterThan(decimal.NewFromInt(1)) {
		value = value.Div(n)
	}
	return value, nil
}
