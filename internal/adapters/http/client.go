// Package http is the plain HTTP side of the bot: search-word sources,
// report delivery and connectivity probes. Everything that needs a real
// browser lives in adapters/browser instead.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/logger"
)

type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode, e.Status)
}

type FetchOptions struct {
	Method            string
	Body              interface{}
	RawBody           []byte
	AdditionalHeaders map[string]string
}

type APIClient struct {
	Proxy      string
	UserAgent  string
	HTTPClient *http.Client
	Log        *logger.ClassLogger
}

func NewAPIClient(proxy string) (*APIClient, error) {
	transport := &http.Transport{}

	if proxy != "" {
		// Account files usually list proxies as bare host:port.
		if !strings.Contains(proxy, "://") {
			proxy = "http://" + proxy
		}
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	apiClient := &APIClient{
		Proxy:     proxy,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36",
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
	apiClient.Log = logger.NewNamed("APIClient", 0, nil)

	return apiClient, nil
}

func (c *APIClient) generateHeaders() map[string]string {
	return map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Content-Type":    "application/json",
		"User-Agent":      c.UserAgent,
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
}

// Fetch performs one request and decodes JSON responses. Non-2xx statuses come
// back as *HTTPError with the body attached.
func (c *APIClient) Fetch(endpoint string, opts *FetchOptions) (interface{}, error) {
	raw, err := c.FetchRaw(endpoint, opts)
	if err != nil {
		return nil, err
	}

	var data interface{}
	if json.Unmarshal(raw, &data) == nil {
		return data, nil
	}
	return string(raw), nil
}

// FetchRaw performs one request and returns the body bytes untouched. Some
// endpoints prepend junk before their JSON payload; callers strip it.
func (c *APIClient) FetchRaw(endpoint string, opts *FetchOptions) ([]byte, error) {
	if opts == nil {
		opts = &FetchOptions{}
	}

	if opts.Method == "" {
		opts.Method = "GET"
	}

	var reqBody io.Reader
	if opts.RawBody != nil && opts.Body != nil {
		return nil, fmt.Errorf("cannot specify both Body and RawBody")
	}

	useRawBody := opts.RawBody != nil
	hasBody := useRawBody || (opts.Method != "GET" && opts.Body != nil)

	if hasBody {
		if useRawBody {
			reqBody = bytes.NewReader(opts.RawBody)
		} else {
			jsonBody, err := json.Marshal(opts.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			reqBody = bytes.NewBuffer(jsonBody)
		}
	}

	req, err := http.NewRequest(opts.Method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.generateHeaders() {
		req.Header.Set(key, value)
	}
	for key, value := range opts.AdditionalHeaders {
		req.Header.Set(key, value)
	}

	if !hasBody {
		req.Header.Del("Content-Type")
	}

	c.Log.JustLog(fmt.Sprintf("%s %s", opts.Method, endpoint))

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return resBodyBytes, nil
	}

	return nil, &HTTPError{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Body:       resBodyBytes,
	}
}

// CheckInternet reports whether the machine is online, using a generate-204
// endpoint so a captive portal cannot fake a success.
func CheckInternet() bool {
	client := &http.Client{Timeout: 10 * time.Second}
	res, err := client.Get("https://www.google.com/generate_204")
	if err != nil {
		return false
	}
	res.Body.Close()
	return res.StatusCode == http.StatusNoContent
}

// IsConnectionError classifies transport-level failures that warrant waiting
// for connectivity instead of failing the account.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused", "connection reset", "no such host",
		"network is unreachable", "timeout", "tls handshake",
		"proxyconnect", "eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
