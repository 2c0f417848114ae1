package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// SearchParams is a product search read from ?q= and ?limit=.
type SearchParams struct {
	Query string
	Limit int
}

// ParseSearch trims q to maxQueryLen and reads limit within [1, maxLimit].
// A blank query skips limit parsing.
func ParseSearch(r *http.Request, maxQueryLen, defaultLimit, maxLimit int) (SearchParams, error) {
	params := SearchParams{
		Query: SanitizeString(r.URL.Query().Get("q"), maxQueryLen),
		Limit: defaultLimit,
	}
	if params.Query == "" {
		return params, nil
	}
	limit, err := queryInt(r, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		return SearchParams{}, err
	}
	params.Limit = limit
	return params, nil
}

func queryInt(r *http.Request, key string, defaultVal, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a whole number", key).
			WithDetails(map[string]string{key: "not a number"})
	}
	if value < lo || value > hi {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, lo, hi).
			WithDetails(map[string]string{key: "out of range"})
	}
	return value, nil
}
