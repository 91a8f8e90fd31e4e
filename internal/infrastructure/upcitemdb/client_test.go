package upcitemdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodlens/backend/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.example.com/", 5*time.Second, 6)

	assert.NotNil(t, client)
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", 0, 0)

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, 15*time.Second, client.httpClient.Timeout)
}

func TestLookup_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup", r.URL.Path)
		assert.Equal(t, "012345", r.URL.Query().Get("upc"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"code": "OK",
			"total": 1,
			"items": [{
				"title": "Acme Lipstick",
				"description": "red",
				"images": ["https://img.example.com/1.jpg"],
				"offers": [{"merchant": "A", "price": ""}, {"merchant": "B", "price": 9.99}]
			}]
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 0)

	result, err := client.Lookup(context.Background(), "012345")

	require.NoError(t, err)
	assert.Equal(t, "Acme Lipstick", result.ProductName)
	assert.Equal(t, "$9.99", *result.MSRP)
	assert.Equal(t, "red", *result.Description)
	assert.Equal(t, []string{"https://img.example.com/1.jpg"}, result.ImageURL)
	assert.Equal(t, SourceLabel, result.Source)
	assert.True(t, result.ExactMatch)
	assert.Equal(t, 100, result.MatchConfidence)
}

func TestLookup_EmptyItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"OK","total":0,"items":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 0)

	result, err := client.Lookup(context.Background(), "000000")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNoResult)
}

func TestLookup_MissingItemsField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"OK"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 0)

	_, err := client.Lookup(context.Background(), "000000")

	assert.ErrorIs(t, err, domain.ErrNoResult)
}

func TestLookup_HTTPError(t *testing.T) {
	statuses := []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			attempts := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(status)
				io.WriteString(w, `{"code":"ERROR"}`)
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second, 0)

			result, err := client.Lookup(context.Background(), "012345")

			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrUpstreamHTTP)

			var httpErr *domain.UpstreamHTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, status, httpErr.StatusCode)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestLookup_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 0)

	result, err := client.Lookup(context.Background(), "012345")

	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestLookup_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := client.Lookup(ctx, "012345")

	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestLookup_RequestCreationError(t *testing.T) {
	client := NewClient("://invalid-url", time.Second, 0)

	result, err := client.Lookup(context.Background(), "012345")

	assert.Nil(t, result)
	assert.Error(t, err)
}
