package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

func testRequest() analysis.Request {
	return analysis.NewRequest(parser.FunctionRecord{
		File:   "kernel/chardev.c",
		Name:   "foo",
		Line:   3,
		Source: "int foo(int x) {\n\tif (x == 0) return -1;\n\tbar();\n\treturn 0;\n}",
	})
}

func TestBuildPromptCarriesRequest(t *testing.T) {
	p := BuildPrompt(testRequest())
	assert.Contains(t, p.System, "single JSON object")
	assert.Contains(t, p.System, "source_text")
	assert.Contains(t, p.User, "Origin hint: kernel. File: kernel/chardev.c. Name: foo. Line: 3.")
	assert.Contains(t, p.User, "bar();")
	assert.Contains(t, p.User, "'len != 0'")
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "  ```\n{\"a\":1}\n```  ", want: `{"a":1}`},
		{in: "```JSON\r\n{\"a\":1}\r\n```", want: `{"a":1}`},
		{in: "text ```json\n{}\n``` more", want: "text ```json\n{}\n``` more"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, string(StripCodeFence([]byte(tc.in))), tc.in)
	}
}

func chatServer(t *testing.T, handler func(w http.ResponseWriter, body chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
	})
}

func TestChatClientSummarize(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, body chatRequest) {
		assert.Equal(t, "test-model", body.Model)
		assert.Equal(t, "json_object", body.ResponseFormat["type"])
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		writeChoice(w, "```json\n{\"origin\":\"kernel\",\"summary\":\"guards bar\",\"calls\":[{\"callee\":\"bar\",\"condition\":\"x != 0\"}],\"confidence\":0.7,\"notes\":\"\"}\n```")
	})

	client, err := NewChatClient(ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "test-model"})
	require.NoError(t, err)

	resp, err := NewSummarizer(client).Summarize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, analysis.OriginKernel, resp.Origin)
	assert.Equal(t, []parser.CallEdge{{Callee: "bar", Condition: "x != 0"}}, resp.Calls)
	assert.InDelta(t, 0.7, resp.Confidence, 1e-9)
}

func TestChatClientErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		content   string
		kind      analysis.ErrorKind
		permanent bool
	}{
		{name: "bad request", status: http.StatusBadRequest, kind: analysis.ErrorTransport, permanent: true},
		{name: "rate limited", status: http.StatusTooManyRequests, kind: analysis.ErrorTransport},
		{name: "server error", status: http.StatusBadGateway, kind: analysis.ErrorTransport},
		{name: "empty content", status: http.StatusOK, content: "", kind: analysis.ErrorFormat, permanent: true},
		{name: "not json", status: http.StatusOK, content: "I think it calls bar", kind: analysis.ErrorFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, func(w http.ResponseWriter, _ chatRequest) {
				if tt.status != http.StatusOK {
					http.Error(w, `{"error":"nope"}`, tt.status)
					return
				}
				writeChoice(w, tt.content)
			})
			client, err := NewChatClient(ChatConfig{BaseURL: srv.URL + "/v1", APIKey: "secret", Model: "m"})
			require.NoError(t, err)

			_, genErr := client.Generate(context.Background(), BuildPrompt(testRequest()))
			if tt.status != http.StatusOK || tt.content == "" {
				require.Error(t, genErr)
				assert.Equal(t, tt.permanent, IsPermanent(genErr))
			}

			_, err = NewSummarizer(client).Summarize(context.Background(), testRequest())
			require.Error(t, err)
			se := analysis.Classify(err)
			assert.Equal(t, tt.kind, se.Kind)
		})
	}
}

type scriptedClient struct {
	calls   atomic.Int64
	replies []error
}

func (s *scriptedClient) Name() string { return "scripted" }
func (s *scriptedClient) Close() error { return nil }

func (s *scriptedClient) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.replies) && s.replies[n] != nil {
		return nil, s.replies[n]
	}
	return []byte(`{"summary":"ok"}`), nil
}

func TestRetry(t *testing.T) {
	transient := errors.New("connection reset")

	t.Run("recovers from transient failures", func(t *testing.T) {
		inner := &scriptedClient{replies: []error{transient, transient}}
		out, err := Chain(inner, Retry(2, time.Millisecond)).Generate(context.Background(), Prompt{})
		require.NoError(t, err)
		assert.Equal(t, `{"summary":"ok"}`, string(out))
		assert.Equal(t, int64(3), inner.calls.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		inner := &scriptedClient{replies: []error{transient, transient, transient, transient}}
		_, err := Chain(inner, Retry(1, time.Millisecond)).Generate(context.Background(), Prompt{})
		require.ErrorIs(t, err, transient)
		assert.Equal(t, int64(2), inner.calls.Load())
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		inner := &scriptedClient{replies: []error{NewPermanentError(transient)}}
		_, err := Chain(inner, Retry(3, time.Millisecond)).Generate(context.Background(), Prompt{})
		require.Error(t, err)
		assert.Equal(t, int64(1), inner.calls.Load())
	})
}

func TestMemoizeSharesIdenticalFunctions(t *testing.T) {
	fake := NewFakeClient()
	client := Chain(fake, Memoize(8))

	req := testRequest()
	other := req
	other.File = "kernel/copy.c"

	_, err := client.Generate(context.Background(), BuildPrompt(req))
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), BuildPrompt(other))
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls())

	changed := req
	changed.Source = strings.Replace(req.Source, "bar", "baz", 1)
	_, err = client.Generate(context.Background(), BuildPrompt(changed))
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls())
}

func TestMemoizeSkipsMalformedReplies(t *testing.T) {
	fake := NewFakeClient()
	fake.Respond = func(ctx context.Context, prompt Prompt) ([]byte, error) {
		if fake.Calls() == 1 {
			return []byte(`{"calls": "not a list"}`), nil
		}
		return []byte(`{"origin": "kernel", "summary": "ok", "calls": []}`), nil
	}
	client := Chain(fake, Memoize(8))
	prompt := BuildPrompt(testRequest())

	for i := 0; i < 3; i++ {
		_, err := client.Generate(context.Background(), prompt)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fake.Calls())

	resp, err := NewSummarizer(client).Summarize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Summary)
	assert.Equal(t, 2, fake.Calls())
}

func TestRateLimitHonoursContext(t *testing.T) {
	client := Chain(NewFakeClient(), RateLimit(0.001, 1))
	defer client.Close()

	_, err := client.Generate(context.Background(), BuildPrompt(testRequest()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Generate(ctx, BuildPrompt(testRequest()))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFakeClientProducesValidResponse(t *testing.T) {
	s := NewSummarizer(NewFakeClient())
	resp, err := s.Summarize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, FakeNote, resp.Notes)
	assert.Equal(t, []parser.CallEdge{{Callee: "bar", Condition: "x != 0"}}, resp.Calls)
}

func TestParseProviderAndSettings(t *testing.T) {
	p, err := ParseProvider("Gemini")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)
	_, err = ParseProvider("anthropic-ish")
	assert.Error(t, err)

	assert.Error(t, Settings{Provider: ProviderGemini}.CheckCredentials())
	assert.Error(t, Settings{Provider: ProviderOpenAI}.CheckCredentials())
	assert.NoError(t, Settings{Provider: ProviderFake}.CheckCredentials())

	client, err := NewClient(context.Background(), Settings{Provider: ProviderFake, MemoSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "fake", client.Name())
	require.NoError(t, client.Close())
}
