package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# appdock configuration
data_dir: ./appdock-data
listen: 127.0.0.1:7600
log_level: info

queue:
  # 0 = unbounded; any positive value enables backpressure (enqueue fails
  # with a queue-full error when the bound is reached).
  max_depth: 0

worker:
  # Per-job handler deadline. "0" disables the deadline.
  job_timeout: 10m

notify:
  # Uncomment to mirror change notifications to NATS for external UIs.
  # nats_url: nats://127.0.0.1:4222
  subject: appdock.state.changed

catalog:
  path: catalog.yaml

maintenance:
  liveness_interval: 30s
  audit_retention: 168h
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
