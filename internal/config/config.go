package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g. ARCMD_TRANSPORT_ADDR.
const EnvPrefix = "ARCMD"

type Config struct {
	Name      string          `toml:"name" envconfig:"NAME"`
	Transport TransportConfig `toml:"transport"`
	HTTP      HTTPConfig      `toml:"http"`
	NATS      NATSConfig      `toml:"nats"`
	Session   SessionConfig   `toml:"session"`
	Monitor   MonitorConfig   `toml:"monitor"`
}

type TransportConfig struct {
	Network string `toml:"network" envconfig:"NETWORK"`
	Addr    string `toml:"addr" envconfig:"ADDR"`
	// Listen is the local bind address for udp. Empty picks an ephemeral port.
	Listen string `toml:"listen" envconfig:"LISTEN"`
}

type HTTPConfig struct {
	Enabled     bool     `toml:"enabled" envconfig:"ENABLED"`
	Addr        string   `toml:"addr" envconfig:"ADDR"`
	CorsOrigins []string `toml:"cors_origins" envconfig:"CORS_ORIGINS"`
	// AuthToken guards POST /decode and /encode when set.
	AuthToken string `toml:"auth_token" envconfig:"AUTH_TOKEN"`
}

type NATSConfig struct {
	Enabled       bool   `toml:"enabled" envconfig:"ENABLED"`
	URL           string `toml:"url" envconfig:"URL"`
	SubjectPrefix string `toml:"subject_prefix" envconfig:"SUBJECT_PREFIX"`
	GlobalSubject string `toml:"global_subject" envconfig:"GLOBAL_SUBJECT"`
}

type SessionConfig struct {
	ReadTimeout       Duration `toml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout      Duration `toml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	MaxAttempts       int      `toml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	BackoffInitial    Duration `toml:"backoff_initial" envconfig:"BACKOFF_INITIAL"`
	BackoffMax        Duration `toml:"backoff_max" envconfig:"BACKOFF_MAX"`
	BackoffMultiplier float64  `toml:"backoff_multiplier" envconfig:"BACKOFF_MULTIPLIER"`
	MaxPayloadBytes   uint32   `toml:"max_payload_bytes" envconfig:"MAX_PAYLOAD_BYTES"`
	NonAckBuffer      uint8    `toml:"non_ack_buffer" envconfig:"NON_ACK_BUFFER"`
	AckBuffer         uint8    `toml:"ack_buffer" envconfig:"ACK_BUFFER"`
	HighPrioBuffer    uint8    `toml:"high_prio_buffer" envconfig:"HIGH_PRIO_BUFFER"`
	// MinFirmware is a version constraint checked against ProductVersionChanged.
	MinFirmware string `toml:"min_firmware" envconfig:"MIN_FIRMWARE"`
}

type MonitorConfig struct {
	MaxLines int `toml:"max_lines" envconfig:"MAX_LINES"`
}

// Duration reads "150ms"-style strings from TOML and the environment.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func Default() Config {
	return Config{
		Name: "arcmdctl",
		Transport: TransportConfig{
			Network: "udp",
			Addr:    "192.168.42.1:54321",
			Listen:  ":43210",
		},
		HTTP: HTTPConfig{
			Addr:        ":9400",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "arsdk",
			GlobalSubject: "arsdk.commands",
		},
		Session: FromSession(defaultSession()),
		Monitor: MonitorConfig{MaxLines: 200},
	}
}

// Load reads path over the defaults, then applies ARCMD_* overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config env overrides failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("config missing name")
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport invalid: %w", err)
	}
	if c.HTTP.Enabled && strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("http enabled but addr missing")
	}
	if c.NATS.Enabled {
		if strings.TrimSpace(c.NATS.URL) == "" {
			return fmt.Errorf("nats enabled but url missing")
		}
		if strings.TrimSpace(c.NATS.SubjectPrefix) == "" {
			return fmt.Errorf("nats subject_prefix is required")
		}
	}
	if c.Monitor.MaxLines < 0 {
		return fmt.Errorf("monitor max_lines must be >= 0")
	}
	if err := c.Session.ToSession().Validate(); err != nil {
		return err
	}
	return nil
}

func (t TransportConfig) Validate() error {
	switch t.Network {
	case "udp", "tcp":
	default:
		return fmt.Errorf("network must be udp or tcp, got %q", t.Network)
	}
	if strings.TrimSpace(t.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	if _, _, err := net.SplitHostPort(t.Addr); err != nil {
		return fmt.Errorf("addr %q: %w", t.Addr, err)
	}
	if t.Listen != "" && t.Network == "udp" {
		if _, _, err := net.SplitHostPort(t.Listen); err != nil {
			return fmt.Errorf("listen %q: %w", t.Listen, err)
		}
	}
	return nil
}
