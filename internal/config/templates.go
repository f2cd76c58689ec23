package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "udp", "drone":
		return udpTemplate, nil
	case "tcp", "sim":
		return tcpTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const udpTemplate = `name = "arcmdctl"

[transport]
network = "udp"
addr = "192.168.42.1:54321"
listen = ":43210"

[http]
enabled = true
addr = ":9400"
cors_origins = ["http://localhost:3000"]
auth_token = ""

[nats]
enabled = false
url = "nats://127.0.0.1:4222"
subject_prefix = "arsdk"
global_subject = "arsdk.commands"

[session]
read_timeout = "15s"
write_timeout = "5s"
max_attempts = 5
backoff_initial = "150ms"
backoff_max = "2s"
backoff_multiplier = 2.0
max_payload_bytes = 65536
non_ack_buffer = 10
ack_buffer = 11
high_prio_buffer = 12
min_firmware = ""

[monitor]
max_lines = 200
`

const tcpTemplate = `name = "arcmdctl-sim"

[transport]
network = "tcp"
addr = "127.0.0.1:44444"

[http]
enabled = true
addr = "127.0.0.1:9400"

[nats]
enabled = true
url = "nats://127.0.0.1:4222"
subject_prefix = "arsdk"
global_subject = "arsdk.commands"

[session]
read_timeout = "30s"
max_attempts = 3
`
