package remote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseURL splits a module URL of the form scheme://host:port/name. Every
// slash is dropped from the path to form the name. The scheme is
// informational; the connection always uses socket.io.
func ParseURL(raw string) (host string, port uint16, name string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host = u.Hostname()
	if host == "" {
		return "", 0, "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	p, err := strconv.ParseUint(u.Port(), 10, 16)
	if err != nil || p == 0 {
		return "", 0, "", fmt.Errorf("%w: %q has no valid port", ErrInvalidURL, raw)
	}
	name = strings.ReplaceAll(u.Path, "/", "")
	if name == "" {
		return "", 0, "", fmt.Errorf("%w: %q has no module name", ErrInvalidURL, raw)
	}
	return host, uint16(p), name, nil
}
