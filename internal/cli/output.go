package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/binance-beast/internal/api"
)

// parseParams turns key=value arguments into request parameters, keeping
// their order.
func parseParams(args []string) (api.Params, error) {
	var params api.Params
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: want key=value", arg)
		}
		params = params.Add(key, value)
	}
	return params, nil
}

// resultError returns the local or exchange error a result carries.
func resultError(r api.Result) error {
	if r.Err != nil {
		return r.Err
	}
	if e, ok := r.ExchangeError(); ok {
		return e
	}
	return nil
}

// printResult writes the document indented, then reports its error.
func printResult(w io.Writer, r api.Result) error {
	if len(r.JSON) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, r.JSON, "", "  "); err != nil {
			buf.Reset()
			buf.Write(r.JSON)
		}
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return resultError(r)
}

// lineWriter serializes whole lines from concurrent handlers.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

// withDuration bounds ctx by d when d is positive.
func withDuration(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
