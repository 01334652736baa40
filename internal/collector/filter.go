package collector

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// entryFilter wraps a compiled CEL program evaluated per entry. When
// disabled, match always returns true.
//
// Variables: item_type, url, commit_id (strings), ts_ms, count, now_ms (ints) and
// extra, the entry's additional page properties decoded as JSON.
type entryFilter struct {
	prog    cel.Program
	enabled bool
}

func newEntryFilter(expr string) (entryFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return entryFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("item_type", cel.StringType),
		cel.Variable("url", cel.StringType),
		cel.Variable("commit_id", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("count", cel.IntType),
		cel.Variable("extra", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return entryFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return entryFilter{}, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return entryFilter{}, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return entryFilter{}, err
	}
	return entryFilter{prog: prog, enabled: true}, nil
}

func (f entryFilter) match(e Entry) (bool, error) {
	if !f.enabled {
		return true, nil
	}
	extra := make(map[string]any, len(e.Content))
	for k, raw := range e.Content {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return false, fmt.Errorf("extra %s: %w", k, err)
		}
		extra[k] = v
	}
	var count int64
	if e.Count != nil {
		count = int64(*e.Count)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"item_type": e.Type,
		"url":       e.Address,
		"commit_id": e.CommitID,
		"ts_ms":     e.CommitTimestamp.UnixMilli(),
		"count":     count,
		"extra":     extra,
		"now_ms":    time.Now().UnixMilli(),
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T", out.Value())
	}
	return b, nil
}
