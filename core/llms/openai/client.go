package openai

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultURL = "https://api.openai.com/v1/responses"

type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithURL overrides the Responses API endpoint, mostly useful for tests and
// compatible gateways.
func WithURL(url string) ClientOption {
	return func(c *Client) { c.url = url }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey: apiKey,
		model:  model,
		url:    defaultURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(string, *http.Request) string {
				return "openai responses"
			}),
		)},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}
