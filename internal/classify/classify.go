// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify screens abstracts with a language model and records a
// Yes/No/Error verdict, the supporting sentence and a short reason.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/litharvest/pkg/types"
)

// Completer abstracts the model server so tests can supply a mock.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BatchSummary holds counts from a classification run. Failed counts the
// Error verdict and any answer other than Yes or No.
type BatchSummary struct {
	Yes    int
	No     int
	Failed int
}

// Total returns the number of records classified.
func (s BatchSummary) Total() int {
	return s.Yes + s.No + s.Failed
}

// HasFailures reports whether any record ended with an Error verdict.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// ProcessResponse extracts the verdict from a raw model reply. The JSON
// object is taken between the first '{' and the last '}'. A reply that does
// not decode yields the Error verdict with the raw reply as reason; a
// decoded object without is_agtech yields Error with the other fields kept.
func ProcessResponse(raw string) types.Classification {
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return types.ErrorClassification(raw)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return types.ErrorClassification(raw)
	}

	c := types.Classification{
		IsAgtech: types.VerdictError,
		Sentence: stringField(fields["sentence"]),
		Reason:   stringField(fields["reason"]),
	}
	if v, ok := fields["is_agtech"]; ok && v != nil {
		c.IsAgtech = normalizeVerdict(v)
	}
	return c
}

func stringField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// normalizeVerdict maps yes/no answers in any case, and booleans, onto the
// canonical verdicts. Other values are kept as given.
func normalizeVerdict(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return types.VerdictYes
		}
		return types.VerdictNo
	}
	s := strings.TrimSpace(stringField(v))
	switch strings.ToLower(s) {
	case "yes":
		return types.VerdictYes
	case "no":
		return types.VerdictNo
	}
	return s
}

// Classifier screens abstracts against one topic.
type Classifier struct {
	Backend Completer
	Config  types.ClassifyConfig
	Log     zerolog.Logger
}

// Classify screens one abstract. Backend failures after retries and empty
// abstracts produce the Error verdict; Classify itself never fails.
func (c *Classifier) Classify(ctx context.Context, abstract string) types.Classification {
	if strings.TrimSpace(abstract) == "" {
		return types.ErrorClassification("empty abstract")
	}
	prompt, err := RenderPrompt(c.Config.Topic, abstract)
	if err != nil {
		return types.ErrorClassification(fmt.Sprintf("rendering prompt: %v", err))
	}
	maxRetries := c.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	raw, err := callWithRetry(ctx, c.Backend, prompt, maxRetries)
	if err != nil {
		return types.ErrorClassification(err.Error())
	}
	return ProcessResponse(raw)
}

// ClassifyAll screens every record and returns copies carrying the verdicts,
// in input order. At most Config.Concurrency calls run at once. Progress is
// drawn on w.
func (c *Classifier) ClassifyAll(ctx context.Context, records []types.Record, w io.Writer) ([]types.Record, BatchSummary) {
	workers := c.Config.Concurrency
	if workers <= 0 {
		workers = 1
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("classifying"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("abstracts"),
		progressbar.OptionShowIts(),
	)

	out := make([]types.Record, len(records))
	copy(out, records)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, workers)
	)
	for i := range out {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			cls := c.Classify(ctx, out[i].Abstract)
			out[i].Classification = cls
			if cls.Failed() {
				c.Log.Warn().Str("doi", out[i].DOI).Str("reason", cls.Reason).Msg("classification failed")
			}

			mu.Lock()
			bar.Add(1)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	bar.Finish()
	fmt.Fprintln(w)

	var summary BatchSummary
	for _, r := range out {
		switch r.IsAgtech {
		case types.VerdictYes:
			summary.Yes++
		case types.VerdictNo:
			summary.No++
		default:
			summary.Failed++
		}
	}
	return out, summary
}

// callWithRetry calls the backend with exponential backoff.
func callWithRetry(ctx context.Context, backend Completer, prompt string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Complete(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
