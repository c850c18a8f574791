package config

import (
	"fmt"
	"strings"
)

// Validate checks that the fields a component needs are set. The component
// name matches the binary: "api", "worker", "mcp-server" or "migrate".
func (c *Config) Validate(component string) error {
	var missing []string

	need := func(value, envName string) {
		if value == "" {
			missing = append(missing, envName)
		}
	}

	switch component {
	case "api":
		need(c.DatabaseURL, "DATABASE_URL")
		need(c.HTTPListenAddr, "HTTP_LISTEN_ADDR")
		need(c.TemporalAddress, "TEMPORAL_ADDRESS")
	case "worker":
		need(c.DatabaseURL, "DATABASE_URL")
		need(c.TemporalAddress, "TEMPORAL_ADDRESS")
		need(c.S3Bucket, "S3_BUCKET")
	case "mcp-server", "migrate":
		need(c.DatabaseURL, "DATABASE_URL")
	default:
		return fmt.Errorf("unknown component %q", component)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required configuration: %s", component, strings.Join(missing, ", "))
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}

	if (c.KafkaUser == "") != (c.KafkaPassword == "") {
		return fmt.Errorf("KAFKA_USER and KAFKA_PASSWORD must both be set")
	}

	return nil
}
