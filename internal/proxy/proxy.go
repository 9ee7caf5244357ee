package proxy

import (
	"math/rand"
	"net/http"
	"net/url"
	"sync"

	"github.com/williampepple1/listings-scraper/internal/config"
)

// Manager picks the outbound proxy for each retrieval attempt
type Manager struct {
	Config *config.ProxyConfig

	mu   sync.Mutex
	next int
}

// NewManager creates a new proxy manager
func NewManager(config *config.ProxyConfig) *Manager {
	return &Manager{
		Config: config,
	}
}

// Enabled reports whether any proxy should be used
func (m *Manager) Enabled() bool {
	return m != nil && m.Config.Enabled && len(m.Config.List) > 0
}

// GetProxyURL returns the proxy for the next attempt, or nil for a direct connection.
// Without rotation the first configured proxy is always used.
func (m *Manager) GetProxyURL() (*url.URL, error) {
	if !m.Enabled() {
		return nil, nil
	}

	proxyStr := m.Config.List[0]
	if m.Config.Rotate && len(m.Config.List) > 1 {
		m.mu.Lock()
		proxyStr = m.Config.List[m.next]
		m.next = (m.next + 1 + rand.Intn(len(m.Config.List)-1)) % len(m.Config.List)
		m.mu.Unlock()
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, err
	}

	if m.Config.Auth.Username != "" && m.Config.Auth.Password != "" {
		proxyURL.User = url.UserPassword(m.Config.Auth.Username, m.Config.Auth.Password)
	}

	return proxyURL, nil
}

// Func returns a Transport.Proxy function that asks the manager per request,
// so each retry can leave through a different proxy.
func (m *Manager) Func() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return m.GetProxyURL()
	}
}
