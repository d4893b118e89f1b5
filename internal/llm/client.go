package llm

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// Supported providers
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Default endpoints per provider
const (
	DefaultOpenAIURL = "https://api.openai.com/v1"
	DefaultOllamaURL = "http://localhost:11434"
)

// Options configures a backend
type Options struct {
	Provider  string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	MaxTokens int

	// Proxy, when set, is used for both http and https requests in place
	// of HTTP_PROXY/HTTPS_PROXY. NoProxy likewise replaces NO_PROXY.
	Proxy   string
	NoProxy string
}

// Providers lists the provider names accepted by New
func Providers() []string {
	return []string{ProviderOpenAI, ProviderOllama, ProviderAnthropic}
}

// New builds the backend named by opts.Provider
func New(opts Options) (Completer, error) {
	switch opts.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(opts), nil
	case ProviderOllama:
		return NewOllamaClient(opts), nil
	case ProviderAnthropic:
		return NewAnthropicClient(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}

// newHTTPClient returns a client for whole-body requests, bounded by timeout
func newHTTPClient(opts Options) *http.Client {
	return &http.Client{
		Transport: newTransport(opts, 0),
		Timeout:   opts.Timeout,
	}
}

// newStreamingClient returns a client without an overall deadline, so long
// streams are not cut off; only the wait for response headers is bounded.
func newStreamingClient(opts Options) *http.Client {
	return &http.Client{
		Transport: newTransport(opts, opts.Timeout),
	}
}

func newTransport(opts Options, headerTimeout time.Duration) *http.Transport {
	proxyFunc := proxyConfig(opts).ProxyFunc()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
	transport.ResponseHeaderTimeout = headerTimeout
	return transport
}

// proxyConfig starts from the proxy environment and applies the configured
// overrides on top
func proxyConfig(opts Options) *httpproxy.Config {
	cfg := httpproxy.FromEnvironment()
	if opts.Proxy != "" {
		cfg.HTTPProxy = opts.Proxy
		cfg.HTTPSProxy = opts.Proxy
	}
	if opts.NoProxy != "" {
		cfg.NoProxy = opts.NoProxy
	}
	return cfg
}
