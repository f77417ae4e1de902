package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AccessPoint.SSIDPrefix != "ESP_ROUTER" {
		t.Errorf("SSIDPrefix = %q, want ESP_ROUTER", cfg.AccessPoint.SSIDPrefix)
	}
	if cfg.Provisioning.AttemptLimit != 3 {
		t.Errorf("AttemptLimit = %d, want 3", cfg.Provisioning.AttemptLimit)
	}
	if cfg.Provisioning.LinkTimeout != 60*time.Second {
		t.Errorf("LinkTimeout = %v, want 60s", cfg.Provisioning.LinkTimeout)
	}
	if cfg.Watchdog.Interval != 5*time.Minute {
		t.Errorf("Watchdog.Interval = %v, want 5m", cfg.Watchdog.Interval)
	}
	if cfg.Discovery.Port != 49152 || cfg.Discovery.VitalSignPort != 49153 {
		t.Errorf("discovery ports = %d/%d, want 49152/49153", cfg.Discovery.Port, cfg.Discovery.VitalSignPort)
	}
	if cfg.Startup.Mode != "button" {
		t.Errorf("Startup.Mode = %q, want button", cfg.Startup.Mode)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
startup:
  mode: auto
access_point:
  ssid_prefix: LAB_ROUTER
  open: true
provisioning:
  attempt_limit: 5
  poll_interval: 250ms
port_map:
  - enabled: true
    protocol: 6
    external_port: 8883
    destination_address: 192.168.13.37
    destination_port: 8883
    direction: outbound
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Startup.Mode != "auto" {
		t.Errorf("Startup.Mode = %q, want auto", cfg.Startup.Mode)
	}
	if cfg.AccessPoint.SSIDPrefix != "LAB_ROUTER" {
		t.Errorf("SSIDPrefix = %q, want LAB_ROUTER", cfg.AccessPoint.SSIDPrefix)
	}
	if cfg.Provisioning.AttemptLimit != 5 {
		t.Errorf("AttemptLimit = %d, want 5", cfg.Provisioning.AttemptLimit)
	}
	if cfg.Provisioning.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.Provisioning.PollInterval)
	}
	if len(cfg.PortMap) != 1 || cfg.PortMap[0].ExternalPort != 8883 {
		t.Errorf("PortMap = %+v, want single slot with external port 8883", cfg.PortMap)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NAPTROUTER_AP_PASSWORD", "from-environment")
	t.Setenv("NAPTROUTER_MQTT_HOST", "broker.local")

	path := writeConfig(t, "{}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AccessPoint.Password != "from-environment" {
		t.Errorf("AccessPoint.Password = %q, want env override", cfg.AccessPoint.Password)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.local", cfg.MQTT.Broker.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad startup mode",
			mutate:  func(c *Config) { c.Startup.Mode = "maybe" },
			wantErr: "startup.mode",
		},
		{
			name:    "short password on secured AP",
			mutate:  func(c *Config) { c.AccessPoint.Password = "short" },
			wantErr: "access_point.password",
		},
		{
			name: "short password tolerated on open AP",
			mutate: func(c *Config) {
				c.AccessPoint.Password = ""
				c.AccessPoint.Open = true
			},
		},
		{
			name:    "ipv6 subnet address rejected",
			mutate:  func(c *Config) { c.Subnet.Address = "fd00::1" },
			wantErr: "subnet.address",
		},
		{
			name:    "ipv6 dns server rejected",
			mutate:  func(c *Config) { c.DNS.Server = "2001:4860:4860::8888" },
			wantErr: "dns.server",
		},
		{
			name: "ipv6 port-map destination rejected",
			mutate: func(c *Config) {
				c.PortMap = []PortMapSlot{{
					Enabled:            true,
					Protocol:           6,
					ExternalPort:       8080,
					DestinationAddress: "fd00::2",
					DestinationPort:    80,
				}}
			},
			wantErr: "port_map[0].destination_address",
		},
		{
			name:    "invalid subnet address",
			mutate:  func(c *Config) { c.Subnet.Address = "not-an-ip" },
			wantErr: "subnet.address",
		},
		{
			name: "too many port map slots",
			mutate: func(c *Config) {
				c.PortMap = make([]PortMapSlot, maxPortMapSlots+1)
			},
			wantErr: "port_map supports at most",
		},
		{
			name:    "zero attempt limit",
			mutate:  func(c *Config) { c.Provisioning.AttemptLimit = 0 },
			wantErr: "attempt_limit",
		},
		{
			name:    "non-positive watchdog interval",
			mutate:  func(c *Config) { c.Watchdog.Interval = 0 },
			wantErr: "watchdog.interval",
		},
		{
			name:    "bad port map direction",
			mutate:  func(c *Config) { c.PortMap = []PortMapSlot{{Direction: "sideways"}} },
			wantErr: "direction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
