package amocrm

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry hands out one Client per account subdomain, building them
// lazily. Webhooks from different accounts therefore never share a
// wrongly-bound client.
type Registry struct {
	mu               sync.RWMutex
	clients          map[string]*Client
	defaultSubdomain string
	accessToken      string
	timeout          time.Duration
	logger           *zap.Logger
}

func NewRegistry(defaultSubdomain, accessToken string, timeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		clients:          make(map[string]*Client),
		defaultSubdomain: defaultSubdomain,
		accessToken:      accessToken,
		timeout:          timeout,
		logger:           logger,
	}
}

// Resolve returns the client for a subdomain, falling back to the
// configured default when the caller supplies none.
func (r *Registry) Resolve(subdomain string) (*Client, error) {
	if subdomain == "" {
		subdomain = r.defaultSubdomain
	}
	if subdomain == "" {
		return nil, fmt.Errorf("amocrm: no subdomain available to bind a client")
	}

	r.mu.RLock()
	client, ok := r.clients[subdomain]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[subdomain]; ok {
		return client, nil
	}

	client = NewClient(subdomain, r.accessToken, r.timeout, r.logger)
	r.clients[subdomain] = client
	r.logger.Info("amoCRM client bound", zap.String("subdomain", subdomain))
	return client, nil
}
