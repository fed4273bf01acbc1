package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	_, err := NewProvider("unknown", "some-model", "")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryCreatesProviders(t *testing.T) {
	for _, name := range []string{"google", "openai", "ollama"} {
		provider, err := NewProvider(name, "some-model", "")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if provider.Name() != name {
			t.Errorf("expected name %q, got %q", name, provider.Name())
		}
	}
}

func TestFactoryCreatesOllamaWithDefaultHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	provider, err := NewProvider("ollama", "llama3", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ollamaP, ok := provider.(*OllamaProvider)
	if !ok {
		t.Fatal("expected *OllamaProvider")
	}
	if ollamaP.baseURL != defaultOllamaHost {
		t.Errorf("expected default host, got %q", ollamaP.baseURL)
	}
}

func TestFactoryGoogleBaseURLOverride(t *testing.T) {
	provider, err := NewProvider("google", "gemini-1.5-flash-latest", "http://example.test/models/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := provider.(*GoogleProvider)
	if g.baseURL != "http://example.test/models" {
		t.Errorf("baseURL = %q", g.baseURL)
	}
}

func TestRequiresAPIKey(t *testing.T) {
	if !RequiresAPIKey("google") || !RequiresAPIKey("openai") {
		t.Error("cloud providers should require a key")
	}
	if RequiresAPIKey("ollama") {
		t.Error("ollama should not require a key")
	}
}

func geminiRequestFixture() CompletionRequest {
	return CompletionRequest{
		APIKey: "secret-key",
		Messages: []Message{
			{Role: RoleSystem, Content: "system text"},
			{Role: RoleUser, Content: "draw a login flow"},
		},
		MaxTokens:        4096,
		Temperature:      0.2,
		TopK:             1,
		TopP:             1,
		ResponseMIMEType: "text/plain",
	}
}

func TestGoogleProviderRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"first"},{"text":"second"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":3}}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("", "gemini-test").WithBaseURL(srv.URL)
	resp, err := p.Complete(context.Background(), geminiRequestFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret-key" {
		t.Errorf("key = %q", gotKey)
	}
	if resp.Content != "first" {
		t.Errorf("expected only the first part, got %q", resp.Content)
	}
	if resp.InputTokens != 7 || resp.OutputTokens != 3 {
		t.Errorf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}

	contents := gotBody["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("expected one content entry, got %d", len(contents))
	}
	sys := gotBody["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)
	if sys["text"] != "system text" {
		t.Errorf("system instruction = %v", sys["text"])
	}
	gen := gotBody["generationConfig"].(map[string]any)
	if gen["temperature"] != 0.2 || gen["topK"] != 1.0 || gen["topP"] != 1.0 ||
		gen["maxOutputTokens"] != 4096.0 || gen["responseMimeType"] != "text/plain" {
		t.Errorf("generationConfig = %v", gen)
	}
}

func TestGoogleProviderEmptyCandidates(t *testing.T) {
	bodies := []string{`{"candidates":[]}`, `{}`, `{"candidates":[{"content":{"parts":[]}}]}`, `{"candidates":[{}]}`}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		p := NewGoogleProvider("k", "m").WithBaseURL(srv.URL)
		resp, err := p.Complete(context.Background(), geminiRequestFixture())
		srv.Close()
		if err != nil {
			t.Errorf("%s: expected no error, got %v", body, err)
			continue
		}
		if resp.Content != "" {
			t.Errorf("%s: expected empty content, got %q", body, resp.Content)
		}
	}
}

func TestGoogleProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("", "m").WithBaseURL(srv.URL)
	_, err := p.Complete(context.Background(), geminiRequestFixture())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != 400 || apiErr.Message != "API key not valid." {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
	if err.Error() != "API Error: 400. API key not valid." {
		t.Errorf("message = %q", err.Error())
	}
}

func TestGoogleProviderAPIErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("", "m").WithBaseURL(srv.URL)
	_, err := p.Complete(context.Background(), geminiRequestFixture())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "Check server logs") {
		t.Errorf("expected generic message, got %q", err.Error())
	}
}

func TestGoogleProviderTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewGoogleProvider("", "m").WithBaseURL(url)
	_, err := p.Complete(context.Background(), geminiRequestFixture())

	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("credential leaked into error: %v", err)
	}
}

func TestOllamaProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"hi"},"done":true,"prompt_eval_count":4,"eval_count":2}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL, "llama3").Complete(context.Background(), geminiRequestFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hi" || resp.InputTokens != 4 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestOllamaProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "nope").Complete(context.Background(), geminiRequestFixture())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != "model 'nope' not found" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestOpenAIProviderPerRequestKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("", "gpt-4o-mini", srv.URL)
	resp, err := p.Complete(context.Background(), geminiRequestFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestOpenAIProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("", "gpt-4o-mini", srv.URL)
	_, err := p.Complete(context.Background(), geminiRequestFixture())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60)

	resp, err := rl.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	mock := NewMockProvider("test")
	if NewRateLimitedProvider(mock, 0) != Provider(mock) {
		t.Error("rpm 0 should return the provider unchanged")
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// Allow only 2 requests per minute.
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hello"}}}

	for i := 0; i < 2; i++ {
		if _, err := rl.Complete(ctx, req); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should block and eventually fail due to context timeout.
	if _, err := rl.Complete(ctx, req); err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected 2 calls to reach the provider, got %d", mock.CallCount())
	}
}

func TestEstimateCost(t *testing.T) {
	if cost := EstimateCost("gemini-1.5-flash-latest", 1000, 500); cost <= 0 {
		t.Errorf("expected positive cost, got %f", cost)
	}
	if cost := EstimateCost("unknown-model", 1000, 500); cost != 0 {
		t.Errorf("expected 0 for unknown model, got %f", cost)
	}
	// gpt-4o: $2.50/1M input, $10/1M output
	cost := EstimateCost("gpt-4o", 1_000_000, 1_000_000)
	if cost < 12.49 || cost > 12.51 {
		t.Errorf("expected cost ~$12.50, got $%.2f", cost)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hi", 1},
		{"hello world!!", 3},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
