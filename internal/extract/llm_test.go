package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ollamaStub serves canned generate responses and records requests.
func ollamaStub(t *testing.T, response string) (*httptest.Server, *[]generateRequest) {
	t.Helper()
	var requests []generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
	return srv, &requests
}

func TestOllamaClient_ExtractEvent(t *testing.T) {
	srv, requests := ollamaStub(t, `{"Event_Type": "Clash", "State": "Benue", "LGA": "Guma", "Severity": "High"}`)
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{URL: srv.URL, Model: "llama3.2"})
	ex, err := c.ExtractEvent(context.Background(), "Farmers and herders clashed in Guma.")
	require.NoError(t, err)

	assert.Equal(t, "Clash", ex.EventType)
	assert.Equal(t, "Benue", ex.State)
	assert.Equal(t, "Guma", ex.LGA)
	assert.Equal(t, "High", ex.Severity)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "llama3.2", req.Model)
	assert.False(t, req.Stream)
	assert.Equal(t, 0.1, req.Options.Temperature)
	assert.Contains(t, req.Prompt, "Text to analyze")
}

func TestOllamaClient_ExtractEvent_CodeFence(t *testing.T) {
	srv, _ := ollamaStub(t, "Here is the analysis:\n```json\n{\"Event_Type\": \"attack\", \"State\": \"Zamfara\", \"LGA\": \"Anka\", \"Severity\": \"critical\"}\n```\nLet me know if you need more.")
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{URL: srv.URL})
	ex, err := c.ExtractEvent(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "attack", ex.EventType)
	assert.Equal(t, "Anka", ex.LGA)
}

func TestOllamaClient_ExtractEvent_ArrayTakesFirst(t *testing.T) {
	srv, _ := ollamaStub(t, `[{"Event_Type": "banditry", "State": "Zamfara", "LGA": "Maru", "Severity": "high"}, {"Event_Type": "other"}]`)
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{URL: srv.URL})
	ex, err := c.ExtractEvent(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "banditry", ex.EventType)
}

func TestOllamaClient_ExtractEvent_NullFieldsBecomeUnknown(t *testing.T) {
	srv, _ := ollamaStub(t, `{"Event_Type": "protest", "State": null, "LGA": "", "Severity": "low"}`)
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{URL: srv.URL})
	ex, err := c.ExtractEvent(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "unknown", ex.State)
	assert.Equal(t, "unknown", ex.LGA)
}

func TestOllamaClient_ExtractEvent_InvalidResponses(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"not json", "I could not find any conflict event in this text."},
		{"missing field", `{"Event_Type": "clash", "State": "Benue", "LGA": "Guma"}`},
		{"scalar", `42`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := ollamaStub(t, tc.response)
			defer srv.Close()

			c := NewOllamaClient(OllamaOptions{URL: srv.URL})
			_, err := c.ExtractEvent(context.Background(), "text")
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestOllamaClient_ExtractEvent_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{URL: srv.URL})
	_, err := c.ExtractEvent(context.Background(), "text")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidResponse)
}

func TestOllamaClient_Categorize(t *testing.T) {
	srv, _ := ollamaStub(t, `{"category": "Banditry", "confidence": 91}`)
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{URL: srv.URL})
	cat, err := c.Categorize(context.Background(), "Armed men rustled cattle near Maru.")
	require.NoError(t, err)
	assert.Equal(t, "Banditry", cat.Category)
	assert.Equal(t, 91, cat.Confidence)
}

func TestOllamaClient_Categorize_Sanitizes(t *testing.T) {
	srv, _ := ollamaStub(t, `{"category": "Cyber Crime", "confidence": 400}`)
	defer srv.Close()

	c := NewOllamaClient(OllamaOptions{URL: srv.URL})
	cat, err := c.Categorize(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", cat.Category)
	assert.Zero(t, cat.Confidence)
}
