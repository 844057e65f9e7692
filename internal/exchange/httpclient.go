package exchange

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// HTTPClientConfig содержит настройки HTTP клиента для биржи.
// Параметры подобраны под торговые операции с низкой latency.
type HTTPClientConfig struct {
	ConnectTimeout time.Duration // таймаут установки TCP соединения (default: 5s)
	ReadTimeout    time.Duration // таймаут чтения ответа (default: 10s)
	TotalTimeout   time.Duration // общий таймаут операции (default: 30s)

	// Connection pooling
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	TLSHandshakeTimeout time.Duration
	KeepAliveInterval   time.Duration
}

// DefaultHTTPClientConfig возвращает конфигурацию по умолчанию
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		TotalTimeout:   30 * time.Second,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout: 5 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// globalClient - общий HTTP клиент для переиспользования connection pool
var (
	globalClient     *http.Client
	globalClientOnce sync.Once
)

// GetGlobalHTTPClient возвращает общий HTTP клиент с настройками по умолчанию
func GetGlobalHTTPClient() *http.Client {
	globalClientOnce.Do(func() {
		globalClient = NewHTTPClient(DefaultHTTPClientConfig())
	})
	return globalClient
}

// NewHTTPClient создаёт HTTP клиент с connection pooling и таймаутами
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: config.KeepAliveInterval,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.MaxConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,

		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},

		// Сжатие отключено для минимизации latency
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: config.ReadTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.TotalTimeout,
	}
}

// CloseGlobalClient закрывает idle соединения общего клиента.
// Вызывается при graceful shutdown приложения.
func CloseGlobalClient() {
	if globalClient != nil {
		if transport, ok := globalClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
}
