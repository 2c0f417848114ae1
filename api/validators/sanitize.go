package validators

import (
	"strconv"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const maxProductIDLen = 128

// SanitizeString trims input and caps it at maxLen bytes without splitting a
// multi-byte character.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut]
}

// ProductID trims a product identifier taken from a path or body. Ids longer
// than the cap are rejected rather than shortened.
func ProductID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if len(id) > maxProductIDLen {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "product id exceeds %d bytes", maxProductIDLen).
			WithDetails(map[string]string{"product_id": "max length " + strconv.Itoa(maxProductIDLen)})
	}
	if !utf8.ValidString(id) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is not valid utf-8")
	}
	return id, nil
}
