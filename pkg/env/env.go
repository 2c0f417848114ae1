package env

import (
	"os"
	"strings"
)

// Prefix namespaces every storefront variable.
const Prefix = "STOREFRONT"

// Get returns STOREFRONT_<key> when set, then the bare key, then fallback.
// Blank values count as unset.
func Get(key, fallback string) string {
	if val, ok := Lookup(key); ok {
		return val
	}
	return fallback
}

func Lookup(key string) (string, bool) {
	for _, name := range []string{Prefix + "_" + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val, true
		}
	}
	return "", false
}
