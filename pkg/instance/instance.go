package instance

import (
	"os"

	"github.com/angelmondragon/storefront/pkg/env"
)

const instanceIDKey = "INSTANCE_ID"

// ID identifies this process in logs and published cart events. It reads
// STOREFRONT_INSTANCE_ID or INSTANCE_ID, then falls back to the hostname, then
// to "storefront-0".
func ID() string {
	if id, ok := env.Lookup(instanceIDKey); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "storefront-0"
}
