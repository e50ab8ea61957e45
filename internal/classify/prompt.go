// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"text/template"

	"github.com/ollama/ollama/api"
)

// screeningPromptTmpl asks the model whether an abstract is about the topic
// and to answer with a single JSON object.
var screeningPromptTmpl = template.Must(template.New("screening").Parse(`From the abstract below, tell me whether it is about {{.Topic}}.

Respond with a JSON object with exactly these fields:
- is_agtech: "Yes" if the abstract is about {{.Topic}}, otherwise "No"
- sentence: the sentence from the abstract that shows it, copied verbatim ("" if none)
- reason: one short sentence explaining the answer

Do not include any text outside the JSON object.

Example response:
{"is_agtech": "Yes", "sentence": "We deploy soil moisture sensors across 40 farms.", "reason": "The study applies sensing technology to crop production."}

Abstract: {{.Abstract}}
`))

// RenderPrompt executes the screening prompt for one abstract.
func RenderPrompt(topic, abstract string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Topic, Abstract string }{Topic: topic, Abstract: abstract}
	if err := screeningPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// OllamaBackend sends prompts to a local Ollama server.
type OllamaBackend struct {
	Model  string
	client *api.Client
}

// NewOllamaBackend returns a backend for the server at host
// (e.g. "http://localhost:11434"). Any path in host is ignored.
func NewOllamaBackend(host, model string, httpClient *http.Client) (*OllamaBackend, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q: want scheme://host:port", host)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host}
	return &OllamaBackend{Model: model, client: api.NewClient(base, httpClient)}, nil
}

// Complete sends prompt as a single user message and returns the reply text.
func (b *OllamaBackend) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    b.Model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
	}

	var content string
	err := b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if content == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return content, nil
}
