// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litharvest/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// mockCompleter answers from a function of the prompt.
type mockCompleter struct {
	fn    func(prompt string) (string, error)
	calls int32
}

func (m *mockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.fn(prompt)
}

func testConfig() types.ClassifyConfig {
	cfg := types.DefaultClassifyConfig()
	cfg.MaxRetries = 2
	return cfg
}

func TestProcessResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.Classification
	}{
		{
			name: "plain json",
			raw:  `{"is_agtech": "Yes", "sentence": "Drones map fields.", "reason": "Precision farming."}`,
			want: types.Classification{IsAgtech: "Yes", Sentence: "Drones map fields.", Reason: "Precision farming."},
		},
		{
			name: "json wrapped in prose and fences",
			raw:  "Sure! Here it is:\n```json\n{\"is_agtech\": \"No\", \"sentence\": \"\", \"reason\": \"Clinical study.\"}\n```",
			want: types.Classification{IsAgtech: "No", Reason: "Clinical study."},
		},
		{
			name: "missing is_agtech",
			raw:  `{"sentence": "s", "reason": "r"}`,
			want: types.Classification{IsAgtech: "Error", Sentence: "s", Reason: "r"},
		},
		{
			name: "lowercase verdict normalised",
			raw:  `{"is_agtech": "yes"}`,
			want: types.Classification{IsAgtech: "Yes"},
		},
		{
			name: "boolean verdict",
			raw:  `{"is_agtech": false, "reason": "no"}`,
			want: types.Classification{IsAgtech: "No", Reason: "no"},
		},
		{
			name: "not json",
			raw:  "Yes. The abstract discusses irrigation.",
			want: types.Classification{IsAgtech: "Error", Reason: "Yes. The abstract discusses irrigation."},
		},
		{
			name: "broken json",
			raw:  `{"is_agtech": "Yes", "sentence": }`,
			want: types.Classification{IsAgtech: "Error", Reason: `{"is_agtech": "Yes", "sentence": }`},
		},
		{
			name: "closing brace before opening",
			raw:  "} nothing {",
			want: types.Classification{IsAgtech: "Error", Reason: "} nothing {"},
		},
		{
			name: "empty",
			raw:  "",
			want: types.Classification{IsAgtech: "Error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProcessResponse(tt.raw))
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	p, err := RenderPrompt("aquaculture", "Fish farms use sensors.")
	require.NoError(t, err)
	assert.Contains(t, p, "about aquaculture")
	assert.Contains(t, p, "Abstract: Fish farms use sensors.")
	assert.Contains(t, p, "is_agtech")
}

func TestClassify_RetriesThenSucceeds(t *testing.T) {
	var n int32
	m := &mockCompleter{fn: func(string) (string, error) {
		if atomic.AddInt32(&n, 1) < 3 {
			return "", errors.New("connection refused")
		}
		return `{"is_agtech":"Yes","sentence":"x","reason":"y"}`, nil
	}}
	c := &Classifier{Backend: m, Config: testConfig(), Log: zerolog.Nop()}

	got := c.Classify(context.Background(), "Robots harvest strawberries.")
	assert.Equal(t, "Yes", got.IsAgtech)
	assert.Equal(t, int32(3), m.calls)
}

func TestClassify_BackendFailureBecomesError(t *testing.T) {
	m := &mockCompleter{fn: func(string) (string, error) { return "", errors.New("model not found") }}
	c := &Classifier{Backend: m, Config: testConfig(), Log: zerolog.Nop()}

	got := c.Classify(context.Background(), "Some abstract.")
	assert.True(t, got.Failed())
	assert.Contains(t, got.Reason, "model not found")
	assert.Equal(t, int32(3), m.calls)
}

func TestClassify_EmptyAbstractSkipsBackend(t *testing.T) {
	m := &mockCompleter{fn: func(string) (string, error) { return "{}", nil }}
	c := &Classifier{Backend: m, Config: testConfig(), Log: zerolog.Nop()}

	got := c.Classify(context.Background(), "   ")
	assert.True(t, got.Failed())
	assert.Zero(t, m.calls)
}

func TestClassifyAll_OrderAndSummary(t *testing.T) {
	records := []types.Record{
		{DOI: "10.1/a", Abstract: "tractor autonomy"},
		{DOI: "10.1/b", Abstract: "oncology trial"},
		{DOI: "10.1/c", Abstract: "FAIL"},
		{DOI: "10.1/d", Abstract: "greenhouse sensors"},
		{DOI: "10.1/e", Abstract: "garbled"},
	}
	m := &mockCompleter{fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "FAIL"):
			return "", errors.New("timeout")
		case strings.Contains(prompt, "garbled"):
			return "I cannot answer that.", nil
		case strings.Contains(prompt, "oncology"):
			return `{"is_agtech":"No","sentence":"","reason":"medicine"}`, nil
		default:
			return `{"is_agtech":"Yes","sentence":"s","reason":"farming"}`, nil
		}
	}}

	for _, workers := range []int{1, 3} {
		cfg := testConfig()
		cfg.Concurrency = workers
		c := &Classifier{Backend: m, Config: cfg, Log: zerolog.Nop()}

		out, summary := c.ClassifyAll(context.Background(), records, io.Discard)
		require.Len(t, out, len(records))
		for i := range records {
			assert.Equal(t, records[i].DOI, out[i].DOI, "order preserved")
		}
		assert.Equal(t, []string{"Yes", "No", "Error", "Yes", "Error"},
			[]string{out[0].IsAgtech, out[1].IsAgtech, out[2].IsAgtech, out[3].IsAgtech, out[4].IsAgtech})
		assert.Contains(t, out[2].Reason, "timeout")
		assert.Equal(t, "I cannot answer that.", out[4].Reason)

		assert.Equal(t, BatchSummary{Yes: 2, No: 1, Failed: 2}, summary)
		assert.Equal(t, 5, summary.Total())
		assert.True(t, summary.HasFailures())
	}

	// Input records are not modified.
	assert.Empty(t, records[0].IsAgtech)
}

func TestClassifyAll_BoundedConcurrency(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	m := &mockCompleter{fn: func(string) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return `{"is_agtech":"No"}`, nil
	}}
	cfg := testConfig()
	cfg.Concurrency = 2
	c := &Classifier{Backend: m, Config: cfg, Log: zerolog.Nop()}

	records := make([]types.Record, 8)
	for i := range records {
		records[i].Abstract = "abstract"
	}
	_, summary := c.ClassifyAll(context.Background(), records, io.Discard)
	assert.Equal(t, 8, summary.No)
	assert.LessOrEqual(t, peak, 2)
}

func TestClassifyAll_Empty(t *testing.T) {
	c := &Classifier{Backend: &mockCompleter{}, Config: testConfig(), Log: zerolog.Nop()}
	out, summary := c.ClassifyAll(context.Background(), nil, io.Discard)
	assert.Empty(t, out)
	assert.Zero(t, summary.Total())
}

func TestCallWithRetry_ContextCancelled(t *testing.T) {
	old := backoffBase
	backoffBase = time.Hour
	defer func() { backoffBase = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	m := &mockCompleter{fn: func(string) (string, error) { return "", errors.New("down") }}
	_, err := callWithRetry(ctx, m, "p", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOllamaBackend_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"model":"llama3.1:8b"`)
		assert.Contains(t, string(body), `"stream":false`)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"llama3.1:8b","message":{"role":"assistant","content":"{\"is_agtech\":\"Yes\"}"},"done":true}`)
	}))
	defer ts.Close()

	b, err := NewOllamaBackend(ts.URL+"/api/chat", "llama3.1:8b", ts.Client())
	require.NoError(t, err)

	got, err := b.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"is_agtech":"Yes"}`, got)
}

func TestNewOllamaBackend_BadHost(t *testing.T) {
	_, err := NewOllamaBackend("localhost", "m", nil)
	assert.Error(t, err)
}
