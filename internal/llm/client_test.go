package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/nextstep/internal/model"
	"github.com/rcliao/nextstep/internal/stream"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func sseResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := NewWithHTTPClient(Config{BaseURL: "http://upstream/v1/", APIKey: "sk-test"}, &http.Client{Transport: rt}, nil)
	require.NoError(t, err)
	return c
}

func collect(t *testing.T, c *Client) ([]model.StreamDelta, error) {
	t.Helper()
	var got []model.StreamDelta
	err := c.StreamChat(context.Background(), ChatRequest{
		Model:    "m",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, func(d model.StreamDelta) { got = append(got, d) })
	return got, err
}

func TestStreamChatRequest(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/chat/completions", req.URL.Path)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		assert.Equal(t, "text/event-stream", req.Header.Get("Accept"))

		var in map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		assert.Equal(t, "m", in["model"])
		assert.Equal(t, true, in["stream"])
		return sseResponse("data: [DONE]\n\n"), nil
	})

	got, err := collect(t, c)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStreamChatDeltas(t *testing.T) {
	body := strings.Join([]string{
		": keep-alive",
		"",
		`data: {"choices":[{"delta":{"reasoning_content":"think"}}]}`,
		"",
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		"",
		"data: not json",
		"",
		`data: {"choices":[{"delta":{"content":"lo","reasoning":"more"}}]}`,
		"",
		`data: {"choices":[{"delta":{}}]}`,
		"",
		"data: [DONE]",
		"",
		`data: {"choices":[{"delta":{"content":"after done"}}]}`,
		"",
	}, "\n")
	c := newTestClient(t, func(*http.Request) (*http.Response, error) { return sseResponse(body), nil })

	got, err := collect(t, c)
	require.NoError(t, err)
	assert.Equal(t, []model.StreamDelta{
		{Reasoning: "think"},
		{Content: "Hel"},
		{Content: "lo", Reasoning: "more"},
	}, got)
}

func TestStreamChatWithoutDone(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\r\n\r\ndata: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}"
	c := newTestClient(t, func(*http.Request) (*http.Response, error) { return sseResponse(body), nil })

	got, err := collect(t, c)
	require.NoError(t, err)
	assert.Equal(t, []model.StreamDelta{{Content: "a"}, {Content: "b"}}, got)
}

func TestStreamChatHTTPError(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader(`{"error":"slow down"}`)),
		}, nil
	})

	_, err := collect(t, c)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "slow down")
}

func TestStreamChatErrorChunk(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\ndata: {\"error\":{\"message\":\"overloaded\"}}\n\n"
	c := newTestClient(t, func(*http.Request) (*http.Response, error) { return sseResponse(body), nil })

	got, err := collect(t, c)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Contains(t, httpErr.Body, "overloaded")
	assert.Equal(t, []model.StreamDelta{{Content: "partial"}}, got)
}

func TestStreamChatNoMessages(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})
	err := c.StreamChat(context.Background(), ChatRequest{Model: "m"}, nil)
	assert.Error(t, err)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "  "}, nil)
	assert.Error(t, err)
}

func TestSourceFeedsAccumulator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Intro\n", `{"type":"next","content":"Graphs","describe":"Why graphs matter"}`} {
			b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"delta": map[string]string{"content": part}}}})
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	acc := stream.New(stream.Hooks{})
	err = stream.Consume(context.Background(), Source(c, ChatRequest{
		Model:    "m",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}), acc)
	require.NoError(t, err)

	snap := acc.Snapshot()
	assert.Equal(t, "Intro", snap.Parsed.Main)
	require.Len(t, snap.Parsed.Options, 1)
	assert.Equal(t, "Graphs", snap.Parsed.Options[0].Content)
}

func TestStreamChatContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	err := c.StreamChat(ctx, ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "x"}}}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestComplete(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"id\\\":\"}}]}\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"\\\"root\\\"}\"}}]}\n\ndata: [DONE]\n\n"
	c := newTestClient(t, func(*http.Request) (*http.Response, error) { return sseResponse(body), nil })

	got, err := Complete(context.Background(), c, ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"root"}`, got)
}

func TestReadSSEMultiLineData(t *testing.T) {
	var events [][2]string
	err := readSSE(strings.NewReader("event: a\ndata: one\ndata: two\n\ndata:three\n"), func(ev, data string) error {
		events = append(events, [2]string{ev, data})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"a", "one\ntwo"}, {"", "three"}}, events)
}
