// Package validation checks URLs before they are fetched or handed to an
// external program.
package validation

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrURLTooLong    = errors.New("URL too long")
	ErrInvalidScheme = errors.New("URL must use http or https")
	ErrMissingHost   = errors.New("URL must have a hostname")
	ErrLocalHost     = errors.New("local and private addresses are not permitted")
	ErrUnsafeURL     = errors.New("URL contains unsafe characters")
)

// URLValidator validates feed URLs and article links. Links end up on a
// command line (see internal/media), so anything a shell or a browser could
// misread is rejected.
type URLValidator struct {
	AllowLocalhost  bool
	AllowPrivateIPs bool
	MaxLength       int
}

// NewURLValidator blocks loopback and private addresses.
func NewURLValidator() *URLValidator {
	return &URLValidator{MaxLength: 2048}
}

// NewPermissiveURLValidator allows local addresses, for development feeds and
// tests against httptest servers.
func NewPermissiveURLValidator() *URLValidator {
	return &URLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       2048,
	}
}

// Normalize validates input and returns its canonical form. A missing scheme
// defaults to https.
func (v *URLValidator) Normalize(input string) (string, error) {
	u, err := v.Parse(input)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (v *URLValidator) Parse(input string) (*url.URL, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyURL
	}
	if v.MaxLength > 0 && len(input) > v.MaxLength {
		return nil, fmt.Errorf("%w (max %d characters)", ErrURLTooLong, v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` \t\r\n") {
		return nil, ErrUnsafeURL
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidScheme
	}
	if u.Hostname() == "" {
		return nil, ErrMissingHost
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: credentials in URL", ErrUnsafeURL)
	}
	u.Host = strings.ToLower(u.Host)

	if err := v.checkHost(u.Hostname()); err != nil {
		return nil, err
	}
	return u, nil
}

func (v *URLValidator) checkHost(hostname string) error {
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("%w: %s", ErrLocalHost, hostname)
	}
	if v.AllowPrivateIPs {
		return nil
	}
	if addr, err := netip.ParseAddr(hostname); err == nil && isPrivate(addr) {
		return fmt.Errorf("%w: %s", ErrLocalHost, hostname)
	}
	return nil
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}

func isPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}
