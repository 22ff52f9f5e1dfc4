package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/cbrbot/bots/cbr/currency"
	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/metrics"
	"github.com/m3rciful/cbrbot/core/telegram/state"
)

type fakeRates struct {
	mu    sync.Mutex
	rates map[currency.Code]decimal.Decimal
	err   error
	calls int
}

func (f *fakeRates) Rate(_ context.Context, cur currency.Currency) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	r, ok := f.rates[cur.Code]
	if !ok {
		return decimal.Zero, errors.New("no rate")
	}
	return r, nil
}

type fakeJournal struct {
	quotes []Quote
	err    error
}

func (f *fakeJournal) Record(_ context.Context, q Quote) error {
	f.quotes = append(f.quotes, q)
	return f.err
}

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.Local)

func newTestRouter(rates *fakeRates, journal QuoteRecorder) *Router {
	return NewRouter(Options{
		Store:   state.NewMemoryStore(),
		Rates:   rates,
		Journal: journal,
		Now:     func() time.Time { return fixedNow },
	})
}

func defaultRates() *fakeRates {
	return &fakeRates{rates: map[currency.Code]decimal.Decimal{
		currency.USD: decimal.RequireFromString("90.50"),
		currency.EUR: decimal.RequireFromString("98.1234"),
		currency.CAD: decimal.RequireFromString("65.005"),
		currency.GBP: decimal.RequireFromString("115.3"),
		currency.CHF: decimal.RequireFromString("101.996"),
		currency.CNY: decimal.RequireFromString("12.56"),
	}}
}

func send(t *testing.T, r *Router, chatID int64, text string) Reply {
	t.Helper()
	rep, err := r.Handle(context.Background(), Event{ChatID: chatID, Text: text, Name: "ivan"})
	if err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return rep
}

func press(t *testing.T, r *Router, chatID int64, data string) Reply {
	t.Helper()
	rep, err := r.Handle(context.Background(), Event{ChatID: chatID, Callback: data})
	if err != nil {
		t.Fatalf("Handle(callback %q): %v", data, err)
	}
	return rep
}

func mustState(t *testing.T, r *Router, chatID int64) state.State {
	t.Helper()
	st, err := r.State(context.Background(), chatID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	return st
}

func TestRateCommands(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)
	cases := map[string]string{
		"/usd": "Курс доллара США на 2026-10-17 составляет 90.50 рублей",
		"/eur": "Курс евро на 2026-10-17 составляет 98.12 рублей",
		"/cad": "Курс канадского доллара на 2026-10-17 составляет 65.01 рублей",
		"/gbp": "Курс фунта стерлингов на 2026-10-17 составляет 115.30 рублей",
		"/chf": "Курс швейцарского франка на 2026-10-17 составляет 102.00 рублей",
		"/cny": "Курс китайского юаня на 2026-10-17 составляет 12.56 рублей",
	}
	for cmd, want := range cases {
		rep := send(t, r, 1, cmd)
		if rep.Text != want {
			t.Fatalf("%s -> %q, want %q", cmd, rep.Text, want)
		}
		if rep.Intent != TextWithMainKeyboard || rep.ChatID != 1 {
			t.Fatalf("%s -> intent %s chat %d", cmd, rep.Intent, rep.ChatID)
		}
	}
	if st := mustState(t, r, 1); st != state.StateIdle {
		t.Fatalf("state = %s, want idle", st)
	}
}

func TestRateCommandFailureApologises(t *testing.T) {
	rates := &fakeRates{err: errors.New("connection refused")}
	r := newTestRouter(rates, nil)
	for _, cur := range currency.All() {
		rep := send(t, r, 1, "/"+cur.Code.Lower())
		want := fmt.Sprintf("Не удалось получить текущий курс %s. Попробуйте позже.", cur.Genitive)
		if rep.Text != want {
			t.Fatalf("%s -> %q, want %q", cur.Code, rep.Text, want)
		}
	}
}

func TestConverterScenario(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)

	rep := send(t, r, 1, "/converter")
	if !strings.HasPrefix(rep.Text, `Вы запустили режим "Конвертации валюты".`) {
		t.Fatalf("unexpected converter text: %q", rep.Text)
	}
	if !strings.Contains(rep.Text, "введите команду 'end'.") {
		t.Fatalf("converter text misses exit hint: %q", rep.Text)
	}
	if st := mustState(t, r, 1); st != StateConverter {
		t.Fatalf("state = %s, want converter", st)
	}

	rep = send(t, r, 1, "usd 10.0")
	want := "10.00 долларов США = 905.00 руб. (По курсу ЦБ РФ на 2026-10-17)"
	if rep.Text != want {
		t.Fatalf("conversion = %q, want %q", rep.Text, want)
	}
	if st := mustState(t, r, 1); st != state.StateIdle {
		t.Fatalf("state = %s, want idle", st)
	}
}

func TestConverterPluralForms(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)
	cases := map[string]string{
		"usd 1":  "1.00 доллар США = 90.50 руб. (По курсу ЦБ РФ на 2026-10-17)",
		"cad 3":  "3.00 канадских доллара = 195.02 руб. (По курсу ЦБ РФ на 2026-10-17)",
		"eur 21": "21.00 евро = 2060.59 руб. (По курсу ЦБ РФ на 2026-10-17)",
		"cny 25": "25.00 китайских юаней = 314.00 руб. (По курсу ЦБ РФ на 2026-10-17)",
		"GBP 22": "22.00 фунта стерлингов = 2536.60 руб. (По курсу ЦБ РФ на 2026-10-17)",
		"chf 0":  "0.00 швейцарских франков = 0.00 руб. (По курсу ЦБ РФ на 2026-10-17)",
	}
	for input, want := range cases {
		send(t, r, 1, "/converter")
		if rep := send(t, r, 1, input); rep.Text != want {
			t.Fatalf("%q -> %q, want %q", input, rep.Text, want)
		}
	}
}

func TestConverterEnd(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)
	send(t, r, 1, "/converter")
	rep := send(t, r, 1, "end")
	if rep.Text != `Вы вышли из режима "Конвертации валюты".` || rep.Intent != TextWithMainKeyboard {
		t.Fatalf("unexpected exit reply: %+v", rep)
	}
	if st := mustState(t, r, 1); st != state.StateIdle {
		t.Fatalf("state = %s, want idle", st)
	}
}

func TestConverterInvalidOffersModeButtons(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)
	for _, input := range []string{"xyz 5", "usd", "usd abc", "/usd", "usd 1e5000000"} {
		send(t, r, 1, "/converter")
		rep := send(t, r, 1, input)
		if rep.Intent != TextWithModeButtons || !strings.HasPrefix(rep.Text, "Вы ввели неверный запрос.") {
			t.Fatalf("%q -> %+v", input, rep)
		}
		if st := mustState(t, r, 1); st != state.StateIdle {
			t.Fatalf("%q left state %s", input, st)
		}
	}
}

func TestConverterFetchFailureReturnsToIdle(t *testing.T) {
	rates := defaultRates()
	r := newTestRouter(rates, nil)
	send(t, r, 1, "/converter")
	rates.err = errors.New("timeout")
	rep := send(t, r, 1, "gbp 2")
	if rep.Text != "Не удалось получить текущий курс фунта стерлингов. Попробуйте позже." {
		t.Fatalf("unexpected reply: %q", rep.Text)
	}
	if st := mustState(t, r, 1); st != state.StateIdle {
		t.Fatalf("state = %s, want idle", st)
	}
}

func TestConversionIsIdempotent(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)
	send(t, r, 1, "/converter")
	first := send(t, r, 1, "usd 10.0")
	send(t, r, 1, "/converter")
	second := send(t, r, 1, "usd 10.0")
	if first != second {
		t.Fatalf("replies differ: %+v vs %+v", first, second)
	}
}

func TestChatsAreIndependent(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)
	send(t, r, 1, "/converter")

	rep := send(t, r, 2, "usd 10.0")
	if !strings.HasPrefix(rep.Text, "Не удалось распознать команду!") {
		t.Fatalf("chat 2 treated as converter input: %q", rep.Text)
	}
	if st := mustState(t, r, 1); st != StateConverter {
		t.Fatalf("chat 1 state = %s, want converter", st)
	}
	if st := mustState(t, r, 2); st != state.StateIdle {
		t.Fatalf("chat 2 state = %s, want idle", st)
	}
}

func TestChatsAreIndependentConcurrently(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)
	var wg sync.WaitGroup
	for chat := int64(1); chat <= 20; chat++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			ctx := context.Background()
			if _, err := r.Handle(ctx, Event{ChatID: chat, Text: "/converter"}); err != nil {
				t.Errorf("enter: %v", err)
				return
			}
			rep, err := r.Handle(ctx, Event{ChatID: chat, Text: "usd 2"})
			if err != nil {
				t.Errorf("convert: %v", err)
				return
			}
			if rep.Text != "2.00 доллара США = 181.00 руб. (По курсу ЦБ РФ на 2026-10-17)" {
				t.Errorf("chat %d got %q", chat, rep.Text)
			}
		}(chat)
	}
	wg.Wait()
}

func TestCallbacks(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)

	rep := press(t, r, 1, "HELP")
	if !strings.HasPrefix(rep.Text, "Справочная информация.") || rep.Intent != TextWithMainKeyboard {
		t.Fatalf("HELP -> %+v", rep)
	}

	rep = press(t, r, 1, "HELP_CONVERTER_COMMAND")
	if rep.Intent != TextWithConverterHelpButton || !strings.Contains(rep.Text, "cny - китайский юань.") {
		t.Fatalf("HELP_CONVERTER_COMMAND -> %+v", rep)
	}
	if st := mustState(t, r, 1); st != state.StateIdle {
		t.Fatalf("help callback changed state to %s", st)
	}

	rep = press(t, r, 1, "CONVERTER_BUTTON ")
	if !strings.HasPrefix(rep.Text, `Вы запустили режим "Конвертации валюты".`) {
		t.Fatalf("CONVERTER_BUTTON -> %+v", rep)
	}
	if st := mustState(t, r, 1); st != StateConverter {
		t.Fatalf("state = %s, want converter", st)
	}

	if rep := press(t, r, 1, "SOMETHING_ELSE"); !rep.Empty() {
		t.Fatalf("unknown callback answered: %+v", rep)
	}
	if st := mustState(t, r, 1); st != StateConverter {
		t.Fatalf("unknown callback changed state to %s", st)
	}
}

func TestStaticCommands(t *testing.T) {
	r := newTestRouter(defaultRates(), nil)

	rep := send(t, r, 1, "/start")
	if !strings.HasPrefix(rep.Text, "Добро пожаловать, ivan!") {
		t.Fatalf("/start -> %q", rep.Text)
	}
	rep, _ = r.Handle(context.Background(), Event{ChatID: 1, Text: "/start"})
	if !strings.HasPrefix(rep.Text, "Добро пожаловать!") {
		t.Fatalf("/start without name -> %q", rep.Text)
	}
	if rep := send(t, r, 1, "/help@cbr_rates_bot"); !strings.HasPrefix(rep.Text, "Справочная информация.") {
		t.Fatalf("/help@bot -> %q", rep.Text)
	}
	if rep := send(t, r, 1, "/USD"); !strings.HasPrefix(rep.Text, "Не удалось распознать команду!") {
		t.Fatalf("/USD -> %q", rep.Text)
	}
	if rep := send(t, r, 1, "hello"); !strings.HasPrefix(rep.Text, "Не удалось распознать команду!") {
		t.Fatalf("hello -> %q", rep.Text)
	}
}

func TestJournalRecordsQuotesAndIgnoresFailures(t *testing.T) {
	journal := &fakeJournal{err: errors.New("db down")}
	r := newTestRouter(defaultRates(), journal)

	rep := send(t, r, 1, "/usd")
	if !strings.Contains(rep.Text, "90.50") {
		t.Fatalf("journal failure leaked into reply: %q", rep.Text)
	}
	if len(journal.quotes) != 1 {
		t.Fatalf("quotes = %d, want 1", len(journal.quotes))
	}
	q := journal.quotes[0]
	if q.Code != currency.USD || !q.Rate.Equal(decimal.RequireFromString("90.50")) || !q.Date.Equal(fixedNow) {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

type brokenStore struct{ state.Store }

func (brokenStore) GetState(context.Context, int64) (state.State, error) {
	return state.StateIdle, errors.New("redis down")
}

func TestStoreFailureIsReported(t *testing.T) {
	r := NewRouter(Options{Store: brokenStore{}, Rates: defaultRates()})
	if _, err := r.Handle(context.Background(), Event{ChatID: 1, Text: "/usd"}); err == nil {
		t.Fatalf("expected store error")
	}
}

type countingStore struct {
	state.Store
	mu   sync.Mutex
	gets int
}

func (s *countingStore) GetState(ctx context.Context, chatID int64) (state.State, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.GetState(ctx, chatID)
}

func TestEachEventReadsStateOnce(t *testing.T) {
	store := &countingStore{Store: state.NewMemoryStore()}
	r := NewRouter(Options{Store: store, Rates: defaultRates(), Now: func() time.Time { return fixedNow }})

	steps := []Event{
		{ChatID: 1, Text: "/usd"},
		{ChatID: 1, Text: "/converter"},
		{ChatID: 1, Text: "usd 10.0"},
		{ChatID: 1, Callback: CallbackConverter},
		{ChatID: 1, Callback: CallbackHelp},
		{ChatID: 1, Text: "end"},
	}
	for i, ev := range steps {
		if _, err := r.Handle(context.Background(), ev); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if store.gets != i+1 {
			t.Fatalf("after step %d state read %d times, want %d", i, store.gets, i+1)
		}
	}
}

type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
	return nil
}
func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

func TestRateFailureIsNotLoggedAgain(t *testing.T) {
	h := &recordHandler{}
	prev := logger.Dialog
	logger.Dialog = slog.New(h)
	t.Cleanup(func() { logger.Dialog = prev })

	r := newTestRouter(&fakeRates{err: errors.New("connection refused")}, nil)
	send(t, r, 1, "/eur")
	send(t, r, 1, "/converter")
	send(t, r, 1, "eur 5")

	for _, rec := range h.records {
		if rec.Level >= slog.LevelError {
			t.Fatalf("dialog logged %q at %s", rec.Message, rec.Level)
		}
	}
}

func TestTransitionsAreCounted(t *testing.T) {
	toConverter := metrics.ConverterTransitionsTotal.WithLabelValues(string(StateConverter))
	toIdle := metrics.ConverterTransitionsTotal.WithLabelValues(string(state.StateIdle))
	beforeConverter, beforeIdle := testutil.ToFloat64(toConverter), testutil.ToFloat64(toIdle)

	r := newTestRouter(defaultRates(), nil)
	send(t, r, 77, "/converter")
	press(t, r, 77, CallbackConverter)
	send(t, r, 77, "end")
	send(t, r, 77, "/usd")

	if got := testutil.ToFloat64(toConverter) - beforeConverter; got != 1 {
		t.Fatalf("converter transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(toIdle) - beforeIdle; got != 1 {
		t.Fatalf("idle transitions = %v, want 1", got)
	}
}
