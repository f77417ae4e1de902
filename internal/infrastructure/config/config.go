package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxPortMapSlots is the fixed capacity of the port-map table.
const maxPortMapSlots = 8

// Config is the root configuration structure for the NAPT router.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device       DeviceConfig       `yaml:"device"`
	Startup      StartupConfig      `yaml:"startup"`
	AccessPoint  AccessPointConfig  `yaml:"access_point"`
	Subnet       SubnetConfig       `yaml:"subnet"`
	DHCP         DHCPConfig         `yaml:"dhcp"`
	DNS          DNSConfig          `yaml:"dns"`
	PortMap      []PortMapSlot      `yaml:"port_map"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Watchdog     WatchdogConfig     `yaml:"watchdog"`
	Indicator    IndicatorConfig    `yaml:"indicator"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
	Database     DatabaseConfig     `yaml:"database"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DeviceConfig identifies the device to the rest of the network.
type DeviceConfig struct {
	// Purpose is the human-readable role string returned in meta-data
	// responses (first CSV field).
	Purpose string `yaml:"purpose"`
}

// StartupConfig selects how routing is first triggered.
type StartupConfig struct {
	// Mode is "button" (wait for the physical trigger) or "auto" (enter
	// provisioning immediately at boot).
	Mode string `yaml:"mode"`
}

// AccessPointConfig contains the downstream access-point settings.
type AccessPointConfig struct {
	// SSIDPrefix is concatenated with the device's own hardware address to
	// form a collision-resistant SSID.
	SSIDPrefix string `yaml:"ssid_prefix"`

	// Password secures the access point with WPA/WPA2 unless Open is set.
	Password string `yaml:"password"`

	// Open disables authentication entirely.
	Open bool `yaml:"open"`

	// Hidden suppresses SSID broadcast.
	Hidden bool `yaml:"hidden"`

	// MaxClients caps simultaneous associations (hardware limit: 8).
	MaxClients int `yaml:"max_clients"`
}

// SubnetConfig contains the router's own network on the access-point side.
// The host part of Address is always forced to 1 when applied.
type SubnetConfig struct {
	Address string `yaml:"address"`
	Netmask string `yaml:"netmask"`
	Gateway string `yaml:"gateway"`
}

// DHCPConfig contains the DHCP lease range handed out on the subnet side.
type DHCPConfig struct {
	RangeStart string `yaml:"range_start"`
	RangeEnd   string `yaml:"range_end"`
}

// DNSConfig contains the DNS server advertised to subnet clients.
type DNSConfig struct {
	// Server overrides the default resolver (8.8.8.8) when non-empty.
	Server string `yaml:"server"`
}

// PortMapSlot is one statically configured translation rule. The mapping
// address is deliberately absent here: it always tracks the uplink address
// and is patched at runtime.
type PortMapSlot struct {
	Enabled            bool   `yaml:"enabled"`
	Protocol           uint8  `yaml:"protocol"`
	ExternalPort       uint16 `yaml:"external_port"`
	DestinationAddress string `yaml:"destination_address"`
	DestinationPort    uint16 `yaml:"destination_port"`

	// Direction is "inbound" (external may open toward internal) or
	// "outbound" (internal may open toward external).
	Direction string `yaml:"direction"`
}

// ProvisioningConfig contains the SmartConfig session policy.
type ProvisioningConfig struct {
	// AttemptLimit bounds consecutive timed-out attempts before the
	// session reports overall failure.
	AttemptLimit int `yaml:"attempt_limit"`

	// ConfigTimeout limits how long an attempt may sit without any
	// encoded credentials arriving.
	ConfigTimeout time.Duration `yaml:"config_timeout"`

	// ReceiveTimeout limits the credential-receive phase.
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`

	// LinkTimeout limits the connection attempt after credentials were
	// decoded. Longer than ReceiveTimeout.
	LinkTimeout time.Duration `yaml:"link_timeout"`

	// PollInterval is how often the lifecycle controller samples the
	// provisioning controller for completion.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// WatchdogConfig contains the connection watchdog settings.
type WatchdogConfig struct {
	// Interval is how often uplink connectivity is confirmed while routing.
	Interval time.Duration `yaml:"interval"`
}

// IndicatorConfig contains status-indicator settings.
type IndicatorConfig struct {
	// BlinkInterval is the toggle period while provisioning is in progress.
	BlinkInterval time.Duration `yaml:"blink_interval"`
}

// DiscoveryConfig contains the UDP meta-data / vital-sign responder settings.
type DiscoveryConfig struct {
	// Port is the UDP port meta-data requests are answered on.
	Port int `yaml:"port"`

	// RequestToken is the exact payload that is answered with meta-data.
	RequestToken string `yaml:"request_token"`

	// VitalSignPort is the UDP port vital signs are broadcast to.
	VitalSignPort int `yaml:"vital_sign_port"`

	// VitalSignInterval is the broadcast period.
	VitalSignInterval time.Duration `yaml:"vital_sign_interval"`
}

// DatabaseConfig contains SQLite settings for the lifecycle event journal.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains the optional status-reporting broker connection.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains reconnection backoff settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains the optional telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: NAPTROUTER_SECTION_KEY
// For example: NAPTROUTER_DATABASE_PATH, NAPTROUTER_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config carrying the reference device's settings as
// defaults, so a config file only needs to state deviations.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Purpose: "WiFi NAPT Router",
		},
		Startup: StartupConfig{
			Mode: "button",
		},
		AccessPoint: AccessPointConfig{
			SSIDPrefix: "ESP_ROUTER",
			Password:   "S20_SmartSocket-WiFi_NAPT_Router",
			MaxClients: maxPortMapSlots,
		},
		Subnet: SubnetConfig{
			Address: "192.168.13.1",
			Netmask: "255.255.255.0",
			Gateway: "192.168.13.1",
		},
		DHCP: DHCPConfig{
			RangeStart: "192.168.13.2",
			RangeEnd:   "192.168.13.64",
		},
		Provisioning: ProvisioningConfig{
			AttemptLimit:   3,
			ConfigTimeout:  30 * time.Second,
			ReceiveTimeout: 30 * time.Second,
			LinkTimeout:    60 * time.Second,
			PollInterval:   500 * time.Millisecond,
		},
		Watchdog: WatchdogConfig{
			Interval: 5 * time.Minute,
		},
		Indicator: IndicatorConfig{
			BlinkInterval: 2 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Port:              49152,
			RequestToken:      "DEVICE_INFO\n",
			VitalSignPort:     49153,
			VitalSignInterval: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:        "./data/naptrouter.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "naptrouter",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: NAPTROUTER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NAPTROUTER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("NAPTROUTER_AP_PASSWORD"); v != "" {
		cfg.AccessPoint.Password = v
	}
	if v := os.Getenv("NAPTROUTER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("NAPTROUTER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NAPTROUTER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("NAPTROUTER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit // flat field-by-field checks
	var errs []string

	switch c.Startup.Mode {
	case "button", "auto":
	default:
		errs = append(errs, `startup.mode must be "button" or "auto"`)
	}

	if c.AccessPoint.SSIDPrefix == "" {
		errs = append(errs, "access_point.ssid_prefix is required")
	}
	if !c.AccessPoint.Open && len(c.AccessPoint.Password) < 8 {
		errs = append(errs, "access_point.password must be at least 8 characters (WPA2 minimum) unless access_point.open is set")
	}
	if c.AccessPoint.MaxClients < 1 || c.AccessPoint.MaxClients > maxPortMapSlots {
		errs = append(errs, fmt.Sprintf("access_point.max_clients must be between 1 and %d", maxPortMapSlots))
	}

	for _, field := range []struct{ name, val string }{
		{"subnet.address", c.Subnet.Address},
		{"subnet.netmask", c.Subnet.Netmask},
		{"subnet.gateway", c.Subnet.Gateway},
		{"dhcp.range_start", c.DHCP.RangeStart},
		{"dhcp.range_end", c.DHCP.RangeEnd},
	} {
		if addr, err := netip.ParseAddr(field.val); err != nil || !addr.Is4() {
			errs = append(errs, fmt.Sprintf("%s is not a valid IPv4 address: %q", field.name, field.val))
		}
	}
	if c.DNS.Server != "" {
		if addr, err := netip.ParseAddr(c.DNS.Server); err != nil || !addr.Is4() {
			errs = append(errs, fmt.Sprintf("dns.server is not a valid IPv4 address: %q", c.DNS.Server))
		}
	}

	if len(c.PortMap) > maxPortMapSlots {
		errs = append(errs, fmt.Sprintf("port_map supports at most %d slots, got %d", maxPortMapSlots, len(c.PortMap)))
	}
	for i, slot := range c.PortMap {
		if slot.Direction != "" && slot.Direction != "inbound" && slot.Direction != "outbound" {
			errs = append(errs, fmt.Sprintf(`port_map[%d].direction must be "inbound" or "outbound"`, i))
		}
		if slot.DestinationAddress != "" {
			if addr, err := netip.ParseAddr(slot.DestinationAddress); err != nil || !addr.Is4() {
				errs = append(errs, fmt.Sprintf("port_map[%d].destination_address is not a valid IPv4 address", i))
			}
		}
	}

	if c.Provisioning.AttemptLimit < 1 {
		errs = append(errs, "provisioning.attempt_limit must be at least 1")
	}
	if c.Provisioning.PollInterval <= 0 {
		errs = append(errs, "provisioning.poll_interval must be positive")
	}
	if c.Provisioning.ConfigTimeout <= 0 || c.Provisioning.ReceiveTimeout <= 0 || c.Provisioning.LinkTimeout <= 0 {
		errs = append(errs, "provisioning timeouts must be positive")
	}
	if c.Watchdog.Interval <= 0 {
		errs = append(errs, "watchdog.interval must be positive")
	}
	if c.Indicator.BlinkInterval <= 0 {
		errs = append(errs, "indicator.blink_interval must be positive")
	}

	if c.Discovery.Port < 1 || c.Discovery.Port > 65535 {
		errs = append(errs, "discovery.port must be between 1 and 65535")
	}
	if c.Discovery.VitalSignPort < 1 || c.Discovery.VitalSignPort > 65535 {
		errs = append(errs, "discovery.vital_sign_port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// MaxPortMapSlots returns the fixed port-map table capacity.
func MaxPortMapSlots() int { return maxPortMapSlots }
