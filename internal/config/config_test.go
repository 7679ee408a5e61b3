package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMakeConfigs(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ConnectionConfig
		network  Network
		restHost string
		wsHost   string
	}{
		{"testnet", MakeTestNetConfig("k", "s"), TestNet, "testnet.binancefuture.com", "stream.binancefuture.com"},
		{"live", MakeLiveConfig("k", "s"), Live, "fapi.binance.com", "fstream.binance.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Network != tt.network {
				t.Errorf("Network = %v, want %v", tt.cfg.Network, tt.network)
			}
			if tt.cfg.RestHost != tt.restHost {
				t.Errorf("RestHost = %q, want %q", tt.cfg.RestHost, tt.restHost)
			}
			if tt.cfg.WsHost != tt.wsHost {
				t.Errorf("WsHost = %q, want %q", tt.cfg.WsHost, tt.wsHost)
			}
			if tt.cfg.Keys.API != "k" || tt.cfg.Keys.Secret != "s" {
				t.Errorf("Keys = %+v, want {k s}", tt.cfg.Keys)
			}
		})
	}
}

func TestSplitHost(t *testing.T) {
	tests := []struct {
		in, host, port string
	}{
		{"fapi.binance.com", "fapi.binance.com", "443"},
		{"fapi.binance.com:8443", "fapi.binance.com", "8443"},
		{"127.0.0.1:9000", "127.0.0.1", "9000"},
		{"[::1]:9000", "::1", "9000"},
	}

	for _, tt := range tests {
		host, port := SplitHost(tt.in)
		if host != tt.host || port != tt.port {
			t.Errorf("SplitHost(%q) = (%q, %q), want (%q, %q)", tt.in, host, port, tt.host, tt.port)
		}
	}
}

func TestConnectionConfig_Endpoints(t *testing.T) {
	cfg := MakeLiveConfig("", "")
	cfg.WsHost = "localhost:9443"

	if host, port := cfg.RestEndpoint(); host != "fapi.binance.com" || port != "443" {
		t.Errorf("RestEndpoint() = (%q, %q)", host, port)
	}
	if host, port := cfg.WsEndpoint(); host != "localhost" || port != "9443" {
		t.Errorf("WsEndpoint() = (%q, %q)", host, port)
	}
}

func TestParseNetwork(t *testing.T) {
	for in, want := range map[string]Network{"testnet": TestNet, "LIVE": Live, " live ": Live} {
		got, err := ParseNetwork(in)
		if err != nil {
			t.Errorf("ParseNetwork(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseNetwork(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseNetwork("mainnet-ish"); err == nil {
		t.Error("ParseNetwork(mainnet-ish) expected error")
	}
}

func TestLoad(t *testing.T) {
	yaml := `
network: live
api:
  key: my-key
  secret: my-secret
  ws_host: localhost:9443
pools:
  rest: 2
  websocket: 3
  pin_threads: true
user_stream:
  renew_interval: 20m
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Network != "live" {
		t.Errorf("Network = %q, want %q", cfg.Network, "live")
	}
	if cfg.API.Key != "my-key" {
		t.Errorf("API.Key = %q, want %q", cfg.API.Key, "my-key")
	}
	if cfg.Pools.Rest != 2 || cfg.Pools.WebSocket != 3 || !cfg.Pools.PinThreads {
		t.Errorf("Pools = %+v", cfg.Pools)
	}
	if cfg.UserStream.RenewInterval != 20*time.Minute {
		t.Errorf("UserStream.RenewInterval = %v, want 20m", cfg.UserStream.RenewInterval)
	}

	conn, err := cfg.Connection()
	if err != nil {
		t.Fatalf("Connection failed: %v", err)
	}
	if conn.Network != Live {
		t.Errorf("Connection().Network = %v, want live", conn.Network)
	}
	if conn.RestHost != LiveRestHost {
		t.Errorf("Connection().RestHost = %q, want %q", conn.RestHost, LiveRestHost)
	}
	if conn.WsHost != "localhost:9443" {
		t.Errorf("Connection().WsHost = %q, want %q", conn.WsHost, "localhost:9443")
	}
	if conn.Keys.Secret != "my-secret" {
		t.Errorf("Connection().Keys.Secret = %q, want %q", conn.Keys.Secret, "my-secret")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_BINANCE_SECRET", "secret123")

	yaml := `
api:
  key: my-key
  secret: ${TEST_BINANCE_SECRET}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.Secret != "secret123" {
		t.Errorf("API.Secret = %q, want %q", cfg.API.Secret, "secret123")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file expected error")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "api:\n  key: k\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Network != DefaultNetwork {
		t.Errorf("Network = %q, want default %q", cfg.Network, DefaultNetwork)
	}
	if cfg.Pools.Rest != DefaultRestPool {
		t.Errorf("Pools.Rest = %d, want default %d", cfg.Pools.Rest, DefaultRestPool)
	}
	if cfg.Pools.WebSocket != DefaultWebSocketPool {
		t.Errorf("Pools.WebSocket = %d, want default %d", cfg.Pools.WebSocket, DefaultWebSocketPool)
	}
	if cfg.UserStream.RenewInterval != DefaultRenewInterval {
		t.Errorf("UserStream.RenewInterval = %v, want default %v", cfg.UserStream.RenewInterval, DefaultRenewInterval)
	}
	if cfg.Recorder.Database.Port != DefaultDBPort {
		t.Errorf("Recorder.Database.Port = %d, want default %d", cfg.Recorder.Database.Port, DefaultDBPort)
	}
	if cfg.Recorder.Table != DefaultRecorderTable {
		t.Errorf("Recorder.Table = %q, want default %q", cfg.Recorder.Table, DefaultRecorderTable)
	}

	conn, err := cfg.Connection()
	if err != nil {
		t.Fatalf("Connection failed: %v", err)
	}
	if conn.RestHost != TestNetRestHost {
		t.Errorf("Connection().RestHost = %q, want %q", conn.RestHost, TestNetRestHost)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "pools:\n  rest: -1\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("LoadAndValidate expected error")
	}
	if err.Error() != "validate config: pools.rest must be >= 1" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestValidate(t *testing.T) {
	valid := func() FileConfig {
		return *Default()
	}
	withRecorder := func() FileConfig {
		c := valid()
		c.Recorder.Enabled = true
		c.Recorder.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*FileConfig)
		base    func() FileConfig
		wantErr string
	}{
		{
			name:    "valid default config",
			base:    valid,
			wantErr: "",
		},
		{
			name:    "unknown network",
			base:    valid,
			mutate:  func(c *FileConfig) { c.Network = "moon" },
			wantErr: `network: unknown network "moon"`,
		},
		{
			name:    "zero websocket pool",
			base:    valid,
			mutate:  func(c *FileConfig) { c.Pools.WebSocket = 0 },
			wantErr: "pools.websocket must be >= 1",
		},
		{
			name:    "zero callback pool",
			base:    valid,
			mutate:  func(c *FileConfig) { c.Pools.Callbacks = 0 },
			wantErr: "pools.callbacks must be >= 1",
		},
		{
			name:    "renew interval beyond expiry",
			base:    valid,
			mutate:  func(c *FileConfig) { c.UserStream.RenewInterval = 2 * time.Hour },
			wantErr: "user_stream.renew_interval must be between 0 and 1h0m0s, got 2h0m0s",
		},
		{
			name:    "bad log level",
			base:    valid,
			mutate:  func(c *FileConfig) { c.Logging.Level = "loud" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "loud"`,
		},
		{
			name:    "recorder disabled ignores database",
			base:    valid,
			mutate:  func(c *FileConfig) { c.Recorder.Database = DBConfig{} },
			wantErr: "",
		},
		{
			name:    "valid recorder",
			base:    withRecorder,
			wantErr: "",
		},
		{
			name:    "recorder missing password",
			base:    withRecorder,
			mutate:  func(c *FileConfig) { c.Recorder.Database.Password = "" },
			wantErr: "recorder.database.password is required",
		},
		{
			name:    "recorder min_conns exceeds max_conns",
			base:    withRecorder,
			mutate:  func(c *FileConfig) { c.Recorder.Database.MinConns = 20 },
			wantErr: "recorder.database.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name:    "recorder bad table",
			base:    withRecorder,
			mutate:  func(c *FileConfig) { c.Recorder.Table = "drop table;" },
			wantErr: `recorder.table "drop table;" is not a valid identifier`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.base()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
