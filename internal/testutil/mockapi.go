// Package testutil provides testing utilities for the API-Football client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable stand-in for the API-Football upstream.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	pathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock upstream server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.pathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.pathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// PathCount returns the number of requests made to a specific path.
func (m *MockAPI) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// defaultHandler provides a default healthy envelope response.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	for key, value := range healthyHeaders() {
		w.Header().Set(key, value)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(EnvelopeBody("status", 0, "[]")))
}

// healthyHeaders returns rate limit headers for a comfortable window.
func healthyHeaders() map[string]string {
	return map[string]string{
		"x-ratelimit-remaining": "95",
		"x-ratelimit-limit":     "100",
		"Content-Type":          "application/json; charset=utf-8",
	}
}

// EnvelopeBody builds a raw API-Football envelope around the given
// response array JSON. An empty response stands for "no rows".
func EnvelopeBody(get string, results int, response string) string {
	if response == "" {
		response = "[]"
	}
	return fmt.Sprintf(`{"get":%q,"parameters":[],"errors":[],"results":%d,"paging":{"current":1,"total":1},"response":%s}`,
		get, results, response)
}

// AppErrorBody builds an envelope carrying an application-level error,
// the way the upstream reports bad parameters or a missing key.
func AppErrorBody(get, code, message string) string {
	return fmt.Sprintf(`{"get":%q,"parameters":[],"errors":{%q:%q},"results":0,"paging":{"current":1,"total":1},"response":[]}`,
		get, code, message)
}

// NewEnvelopeResponse creates a 200 response carrying a well-formed
// envelope and healthy rate limit headers.
func NewEnvelopeResponse(get string, results int, response string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       EnvelopeBody(get, results, response),
		Headers:    healthyHeaders(),
	}
}

// NewAppErrorResponse creates a 200 response whose envelope carries an
// application-level error.
func NewAppErrorResponse(get, code, message string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       AppErrorBody(get, code, message),
		Headers:    healthyHeaders(),
	}
}

// NewRateLimitedResponse creates a 429 with an exhausted window that
// resets after resetIn.
func NewRateLimitedResponse(resetIn time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Too many requests"}`,
		Headers: map[string]string{
			"x-ratelimit-remaining": "0",
			"x-ratelimit-limit":     "100",
			"x-ratelimit-reset":     strconv.FormatInt(time.Now().Add(resetIn).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
		Headers: map[string]string{
			"x-ratelimit-remaining": "90",
			"x-ratelimit-limit":     "100",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}
