package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/agisilaos/asana-planner/internal/output"
)

func setRequestID(ctx *Context, requestID string) {
	if requestID != "" {
		ctx.RequestID = requestID
	}
}

func writeError(ctx *Context, err error) {
	if err == nil {
		return
	}
	meta := output.Meta{RequestID: ctx.RequestID}
	if ctx.Mode == output.ModeJSON {
		enc := json.NewEncoder(ctx.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"error": err.Error(),
			"meta":  meta,
		})
		return
	}
	if meta.RequestID != "" {
		fmt.Fprintf(ctx.Stderr, "error: %s (request_id=%s)\n", err, meta.RequestID)
		return
	}
	fmt.Fprintf(ctx.Stderr, "error: %s\n", err)
}

// writeRows renders rows in the active output mode. items is what JSON and
// NDJSON modes encode.
func writeRows[T any](ctx *Context, headers []string, rows [][]string, items []T, meta output.Meta) error {
	switch ctx.Mode {
	case output.ModeJSON:
		if items == nil {
			items = []T{}
		}
		return output.WriteJSON(ctx.Stdout, items, meta)
	case output.ModeNDJSON:
		return output.WriteNDJSON(ctx.Stdout, items)
	case output.ModePlain:
		return output.WritePlain(ctx.Stdout, rows)
	default:
		return output.WriteTableWidth(ctx.Stdout, headers, rows, cellWidth(ctx, len(headers)))
	}
}

func terminalWidth() int {
	if env := os.Getenv("COLUMNS"); env != "" {
		if val, err := strconv.Atoi(env); err == nil && val > 0 {
			return val
		}
	}
	return 120
}

func tableWidth(ctx *Context) int {
	if ctx != nil && ctx.Config.TableWidth > 0 {
		return ctx.Config.TableWidth
	}
	return terminalWidth()
}

func cellWidth(ctx *Context, columns int) int {
	if columns <= 0 {
		return 0
	}
	w := tableWidth(ctx)/columns - 2
	if w < 8 {
		w = 8
	}
	return w
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
