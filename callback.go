package greeter

import (
	"net/url"
	"strings"
)

// SafeCallback returns callback when it is a local absolute path
func SafeCallback(callback string) string {
	callback = strings.TrimSpace(callback)
	if callback == "" || !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") || strings.HasPrefix(callback, "/\\") {
		return "/"
	}

	u, err := url.Parse(callback)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}

	return callback
}
