package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/rickgao/binance-beast/internal/auth"
)

// Network selects which exchange environment to talk to.
type Network int

const (
	TestNet Network = iota
	Live
)

// Exchange hosts per network.
const (
	LiveRestHost    = "fapi.binance.com"
	LiveWsHost      = "fstream.binance.com"
	TestNetRestHost = "testnet.binancefuture.com"
	TestNetWsHost   = "stream.binancefuture.com"

	DefaultPort = "443"
)

func (n Network) String() string {
	switch n {
	case TestNet:
		return "testnet"
	case Live:
		return "live"
	default:
		return fmt.Sprintf("Network(%d)", int(n))
	}
}

// ParseNetwork maps "testnet" or "live" (case-insensitive) to a Network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testnet", "test":
		return TestNet, nil
	case "live", "prod", "production":
		return Live, nil
	default:
		return 0, fmt.Errorf("unknown network %q", s)
	}
}

// Keys are the API credentials.
type Keys struct {
	API    string
	Secret string
}

// ConnectionConfig is the immutable set of endpoints and credentials a client
// uses for its whole lifetime. Pass it by value.
type ConnectionConfig struct {
	RestHost string
	WsHost   string
	Keys     Keys
	Network  Network
}

// MakeTestNetConfig returns a configuration for the test network.
func MakeTestNetConfig(apiKey, secretKey string) ConnectionConfig {
	return ConnectionConfig{
		RestHost: TestNetRestHost,
		WsHost:   TestNetWsHost,
		Keys:     Keys{API: apiKey, Secret: secretKey},
		Network:  TestNet,
	}
}

// MakeLiveConfig returns a configuration for the live exchange.
func MakeLiveConfig(apiKey, secretKey string) ConnectionConfig {
	return ConnectionConfig{
		RestHost: LiveRestHost,
		WsHost:   LiveWsHost,
		Keys:     Keys{API: apiKey, Secret: secretKey},
		Network:  Live,
	}
}

// Credentials returns the keys in the form the signer uses.
func (c ConnectionConfig) Credentials() auth.Credentials {
	return auth.NewCredentials(c.Keys.API, c.Keys.Secret)
}

// RestEndpoint returns the REST host and port.
func (c ConnectionConfig) RestEndpoint() (host, port string) {
	return SplitHost(c.RestHost)
}

// WsEndpoint returns the streaming host and port.
func (c ConnectionConfig) WsEndpoint() (host, port string) {
	return SplitHost(c.WsHost)
}

// SplitHost separates an optional ":port" suffix from h. Without one the
// port is DefaultPort.
func SplitHost(h string) (host, port string) {
	if host, port, err := net.SplitHostPort(h); err == nil && port != "" {
		return host, port
	}
	return h, DefaultPort
}
