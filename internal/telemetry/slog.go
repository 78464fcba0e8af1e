package telemetry

import (
	"fmt"
	"log/slog"
	"strings"
)

// SlogAPI implements API using the log/slog package.
type SlogAPI struct{}

// attrs splits a scoped id such as "ecourts: order-retriever.download" into
// its scope and id, then appends the params. A lone error goes under "err".
func (SlogAPI) attrs(id string, params []any) []any {
	out := make([]any, 0, 4+2*len(params))
	if scope, rest, ok := strings.Cut(id, ": "); ok {
		out = append(out, "scope", scope)
		id = rest
	}
	if id != "" {
		out = append(out, "id", id)
	}
	for i, p := range params {
		key := fmt.Sprintf("params.%d", i)
		if err, ok := p.(error); ok {
			if len(params) == 1 {
				key = "err"
			}
			out = append(out, key, err.Error())
			continue
		}
		out = append(out, key, p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", s.attrs(id, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", s.attrs(id, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, s.attrs("", params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", append(s.attrs(id, nil), "n", count)...)
}
