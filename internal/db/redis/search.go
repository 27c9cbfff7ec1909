package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/kfsearch/internal/db"
)

const vectorScoreField = "__vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Scores are cosine similarities clamped to [0,1]; entries are ordered by similarity.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = "embedding"
	}

	params := []string{"BLOB", vectorToBytes(q.Vector)}
	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, field)
	if q.EF > 0 {
		knnPart = fmt.Sprintf("[KNN %d @%s $BLOB EF_RUNTIME $EF]", q.K, field)
		params = append(params, "EF", strconv.Itoa(q.EF))
	}

	args := []string{q.IndexName, "*=>" + knnPart}

	if len(q.ReturnFields) > 0 {
		fields := append(append([]string{}, q.ReturnFields...), vectorScoreField)
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	args = append(args, "SORTBY", vectorScoreField, "ASC", "LIMIT", "0", strconv.Itoa(q.K))
	args = append(args, "PARAMS", strconv.Itoa(len(params)))
	args = append(args, params...)
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchError(err)
	}

	return parseKNNResult(raw)
}

// SearchText runs a full-text query via FT.SEARCH. Terms are OR-ed; with Fuzzy
// each term tolerates edits scaled to its length. Entries keep the server's rank order.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	if !s.textSearch {
		return nil, db.ErrTextSearchNotSupported
	}

	terms := buildTerms(q.Query, q.Fuzzy)
	if terms == "" {
		return nil, fmt.Errorf("query is required")
	}

	field := q.Field
	if field == "" {
		field = "text"
	}

	args := []string{q.IndexName, fmt.Sprintf("@%s:(%s)", field, terms)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchError(err)
	}

	return parseTextResult(raw)
}

func searchError(err error) error {
	if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
		return &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %w", db.ErrIndexNotFound, err)}
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}

// --- Result parsing ---

// malformed reports a reply that does not match the FT.SEARCH layout. Rows are
// never skipped: a partially readable reply fails the whole search.
func malformed(format string, args ...any) error {
	return &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: "+format, append([]any{db.ErrMalformedResponse}, args...)...)}
}

func parseTotal(raw []rueidis.RedisMessage, stride int) (int64, error) {
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, malformed("total: %v", err)
	}
	if (len(raw)-1)%stride != 0 {
		return 0, malformed("%d reply elements for stride %d", len(raw)-1, stride)
	}
	return total, nil
}

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	total, err := parseTotal(raw, 2)
	if err != nil {
		return nil, err
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, malformed("row %d key: %v", len(entries), err)
		}
		fields, err := parseFieldPairs(raw[i+1])
		if err != nil {
			return nil, malformed("row %s fields: %v", key, err)
		}

		scoreStr, ok := fields[vectorScoreField]
		if !ok {
			return nil, malformed("row %s has no %s", key, vectorScoreField)
		}
		d, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, malformed("row %s distance %q", key, scoreStr)
		}
		delete(fields, vectorScoreField)

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  max(0, 1.0-d), // cosine distance → similarity
			Fields: fields,
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseTextResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	total, err := parseTotal(raw, 3)
	if err != nil {
		return nil, err
	}

	entries := make([]db.SearchEntry, 0, len(raw)/3)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, malformed("row %d key: %v", len(entries), err)
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			return nil, malformed("row %s score: %v", key, err)
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return nil, malformed("row %s score %q", key, scoreStr)
		}
		fields, err := parseFieldPairs(raw[i+2])
		if err != nil {
			return nil, malformed("row %s fields: %v", key, err)
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: fields,
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(msg rueidis.RedisMessage) (map[string]string, error) {
	fields, err := msg.ToArray()
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd field list of %d", len(fields))
	}
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		m[name] = value
	}
	return m, nil
}

// --- Query helpers ---

// buildTerms escapes whitespace-separated terms and joins them with OR.
// Fuzzy terms allow 0 edits up to 2 runes, 1 edit up to 5 runes, 2 edits beyond.
func buildTerms(query string, fuzzy bool) string {
	words := strings.Fields(query)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		escaped := escapeQuery(w)
		if !fuzzy {
			parts = append(parts, escaped)
			continue
		}
		switch n := utf8.RuneCountInString(w); {
		case n <= 2:
			parts = append(parts, escaped)
		case n <= 5:
			parts = append(parts, "%"+escaped+"%")
		default:
			parts = append(parts, "%%"+escaped+"%%")
		}
	}
	return strings.Join(parts, " | ")
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
	`/`, `\/`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
