package logger

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type encoder interface {
	encode(rec record) ([]byte, error)
}

func newEncoder(format logFormat, order []string) encoder {
	if format == formatJSON {
		return jsonEncoder{order: order}
	}
	return kvEncoder{order: order}
}

// sortedKeys lists the keys of rec: those named in order first, in that
// order, then the rest alphabetically.
func sortedKeys(rec record, order []string) []string {
	keys := make([]string, 0, len(rec))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := rec[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	head := len(keys)
	for k := range rec {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[head:])
	return keys
}

type jsonEncoder struct{ order []string }

func (e jsonEncoder) encode(rec record) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range sortedKeys(rec, e.order) {
		val, err := json.Marshal(rec[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %q: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// kvEncoder writes logfmt style key=value pairs, quoting values that
// contain spaces, quotes or '='.
type kvEncoder struct{ order []string }

func (e kvEncoder) encode(rec record) ([]byte, error) {
	var b strings.Builder
	for i, k := range sortedKeys(rec, e.order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(rec[k])
		if strings.ContainsFunc(s, needsQuote) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String()), nil
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
