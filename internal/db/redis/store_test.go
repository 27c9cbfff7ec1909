package redis

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/kfsearch/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestSupportsTextSearch(t *testing.T) {
	if !NewStoreForTest(nil).SupportsTextSearch(context.Background()) {
		t.Error("redis store should support text search")
	}
	s := &Store{textSearch: false}
	if s.SupportsTextSearch(context.Background()) {
		t.Error("valkey store should not support text search")
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if errors.Is(err, db.ErrKeyNotFound) {
		t.Error("should not be ErrKeyNotFound for network errors")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "mykey", []byte("myvalue")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("myvalue"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_ZeroFallsBackToSet(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("kf:L01_V001/001.jpg"),
			mock.RedisArray(
				mock.RedisString("path"), mock.RedisString("L01/L01_V001/001.jpg"),
				mock.RedisString("caption"), mock.RedisString("a red car"),
				mock.RedisString("__vector_score"), mock.RedisString("0.1"),
			),
			mock.RedisString("kf:L01_V001/002.jpg"),
			mock.RedisArray(
				mock.RedisString("path"), mock.RedisString("L01/L01_V001/002.jpg"),
				mock.RedisString("caption"), mock.RedisString("a blue car"),
				mock.RedisString("__vector_score"), mock.RedisString("0.4"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "kf_idx",
		VectorField:  "embedding",
		Vector:       []float32{0.1, 0.2},
		K:            2,
		EF:           402,
		ReturnFields: []string{"path", "caption"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}

	e := result.Entries[0]
	if e.Fields["path"] != "L01/L01_V001/001.jpg" || e.Fields["caption"] != "a red car" {
		t.Errorf("unexpected fields: %v", e.Fields)
	}
	if _, ok := e.Fields["__vector_score"]; ok {
		t.Error("__vector_score should be stripped from fields")
	}
	// cosine distance 0.1 maps to similarity 0.9
	if e.Score < 0.89 || e.Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", e.Score)
	}

	if got[2] != "*=>[KNN 2 @embedding $BLOB EF_RUNTIME $EF]" {
		t.Errorf("unexpected query: %q", got[2])
	}
	if !slices.Contains(got, "__vector_score") || !slices.Contains(got, "SORTBY") {
		t.Errorf("expected score field and SORTBY in args: %v", got)
	}
	if i := slices.Index(got, "LIMIT"); i < 0 || got[i+2] != "2" {
		t.Errorf("expected LIMIT 0 2 in args: %v", got)
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped deadline error, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10})
	if err == nil {
		t.Error("expected error for empty index name")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10})
	if err == nil {
		t.Error("expected error for empty vector")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}, K: 0})
	if err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearchText_PreservesOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("ocr:2"),
			mock.RedisString("3.5"),
			mock.RedisArray(mock.RedisString("path"), mock.RedisString("L02/L02_V003/010.jpg")),
			mock.RedisString("ocr:1"),
			mock.RedisString("1.25"),
			mock.RedisArray(mock.RedisString("path"), mock.RedisString("L01/L01_V001/004.jpg")),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchText(context.Background(), &db.TextQuery{
		IndexName:    "ocr_idx",
		Field:        "text",
		Query:        "bão lũ",
		TopK:         50,
		ReturnFields: []string{"path"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].Fields["path"] != "L02/L02_V003/010.jpg" {
		t.Errorf("backend order lost: %v", result.Entries)
	}
	if result.Entries[0].Score != 3.5 {
		t.Errorf("expected score 3.5, got %f", result.Entries[0].Score)
	}
	if got[2] != "@text:(bão | lũ)" {
		t.Errorf("unexpected query: %q", got[2])
	}
}

func TestSearchText_Validation(t *testing.T) {
	s := NewStoreForTest(nil)
	ctx := context.Background()

	_, err := s.SearchText(ctx, &db.TextQuery{Query: "test", TopK: 10})
	if err == nil {
		t.Error("expected error for empty index name")
	}

	_, err = s.SearchText(ctx, &db.TextQuery{IndexName: "idx", Query: "  ", TopK: 10})
	if err == nil {
		t.Error("expected error for blank query")
	}

	_, err = s.SearchText(ctx, &db.TextQuery{IndexName: "idx", Query: "test", TopK: 0})
	if err == nil {
		t.Error("expected error for topK=0")
	}
}

func TestSearchText_Unsupported(t *testing.T) {
	s := &Store{textSearch: false}
	_, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "idx", Query: "q", TopK: 1})
	if !errors.Is(err, db.ErrTextSearchNotSupported) {
		t.Errorf("expected ErrTextSearchNotSupported, got %v", err)
	}
}

func TestSearchText_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("ocr_idx: no such index")))

	s := NewStoreForTest(c)
	_, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "ocr_idx", Query: "q", TopK: 1})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestBuildTerms(t *testing.T) {
	tests := []struct {
		query string
		fuzzy bool
		want  string
	}{
		{"red car", false, "red | car"},
		{"a red motorbike", true, "a | %red% | %%motorbike%%"},
		{"HTV9 news", true, "%HTV9% | %news%"},
		{"e-mail", false, `e\-mail`},
		{"   ", true, ""},
	}
	for _, tc := range tests {
		if got := buildTerms(tc.query, tc.fuzzy); got != tc.want {
			t.Errorf("buildTerms(%q, %v) = %q, want %q", tc.query, tc.fuzzy, got, tc.want)
		}
	}
}

func TestEscapeQuery(t *testing.T) {
	input := `hello "world" @user {tag}`
	escaped := escapeQuery(input)
	expected := `hello \"world\" \@user \{tag\}`
	if escaped != expected {
		t.Errorf("expected %q, got %q", expected, escaped)
	}
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.0, 2.0}
	b := vectorToBytes(v)
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

func TestParseKNNResult_Malformed(t *testing.T) {
	row := func(fields ...string) rueidis.RedisMessage {
		msgs := make([]rueidis.RedisMessage, len(fields))
		for i, f := range fields {
			msgs[i] = mock.RedisString(f)
		}
		return mock.RedisArray(msgs...)
	}

	tests := []struct {
		name string
		raw  []rueidis.RedisMessage
	}{
		{"missing score", []rueidis.RedisMessage{
			mock.RedisInt64(1), mock.RedisString("kf:1"), row("path", "a.jpg"),
		}},
		{"unparsable score", []rueidis.RedisMessage{
			mock.RedisInt64(1), mock.RedisString("kf:1"), row("path", "a.jpg", "__vector_score", "close"),
		}},
		{"non-finite score", []rueidis.RedisMessage{
			mock.RedisInt64(1), mock.RedisString("kf:1"), row("path", "a.jpg", "__vector_score", "NaN"),
		}},
		{"odd field list", []rueidis.RedisMessage{
			mock.RedisInt64(1), mock.RedisString("kf:1"), row("path", "a.jpg", "__vector_score"),
		}},
		{"fields not an array", []rueidis.RedisMessage{
			mock.RedisInt64(1), mock.RedisString("kf:1"), mock.RedisString("path"),
		}},
		{"truncated reply", []rueidis.RedisMessage{
			mock.RedisInt64(2), mock.RedisString("kf:1"), row("path", "a.jpg", "__vector_score", "0.1"),
			mock.RedisString("kf:2"),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseKNNResult(tc.raw)
			if !errors.Is(err, db.ErrMalformedResponse) {
				t.Fatalf("expected malformed response error, got %v", err)
			}
			if !isDBError(err) {
				t.Error("expected db.Error")
			}
		})
	}
}

func TestParseTextResult_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []rueidis.RedisMessage
	}{
		{"unparsable score", []rueidis.RedisMessage{
			mock.RedisInt64(1), mock.RedisString("ocr:1"), mock.RedisString("high"),
			mock.RedisArray(mock.RedisString("path"), mock.RedisString("a.jpg")),
		}},
		{"missing fields", []rueidis.RedisMessage{
			mock.RedisInt64(1), mock.RedisString("ocr:1"), mock.RedisString("1.5"),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseTextResult(tc.raw); !errors.Is(err, db.ErrMalformedResponse) {
				t.Fatalf("expected malformed response error, got %v", err)
			}
		})
	}
}

func TestSearchText_MalformedReplyFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("ocr:1"),
			mock.RedisString("1.5"),
			mock.RedisString("not-a-field-list"),
		)))

	s := NewStoreForTest(c)
	_, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "ocr_idx", Query: "HTV9", TopK: 5})
	if !errors.Is(err, db.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
