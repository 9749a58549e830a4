// Package safepath guards the two untrusted-input surfaces of the scanner:
// filesystem paths supplied by the operator (traversal out of the permitted
// root) and URLs harvested from documents (SSRF during link audits).
package safepath

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a requested path escapes its base.
var ErrPathTraversal = errors.New("safepath: path escapes permitted root")

// ErrSSRF is returned when a URL targets a private/loopback address.
var ErrSSRF = errors.New("safepath: URL targets a private or loopback address")

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("safepath: only http and https schemes are allowed")

// Resolve canonicalizes requested and verifies it stays under base.
// Symlinks are followed during canonicalization, so a link pointing outside
// base is rejected even when its literal path looks contained. A relative
// requested path is interpreted against base. Returns the canonical
// absolute path.
func Resolve(base, requested string) (string, error) {
	baseReal, err := filepath.EvalSymlinks(filepath.Clean(base))
	if err != nil {
		return "", fmt.Errorf("safepath: resolve base %s: %w", base, err)
	}
	p := requested
	if p == "" {
		return baseReal, nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseReal, p)
	}
	real, err := filepath.EvalSymlinks(filepath.Clean(p))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("safepath: %s: %w", requested, os.ErrNotExist)
		}
		return "", fmt.Errorf("safepath: resolve %s: %w", requested, err)
	}
	if !Within(baseReal, real) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, requested)
	}
	return real, nil
}

// Within reports whether path equals base or lies underneath it.
// Both arguments must already be canonical.
func Within(base, path string) bool {
	return path == base || strings.HasPrefix(path, base+string(filepath.Separator))
}

// ValidateURL checks that rawURL uses http/https, has a hostname, and does
// not resolve to a private or loopback IP. DNS resolution is performed to
// catch internal hostnames.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safepath: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("safepath: URL has no host")
	}

	// A literal address is checked as-is; hostnames are resolved so an
	// internal DNS name cannot mask a private target. Unresolvable hosts
	// pass through and fail later at the HTTP client.
	var addrs []net.IP
	if ip := net.ParseIP(host); ip != nil {
		addrs = []net.IP{ip}
	} else if resolved, lookupErr := net.LookupIP(host); lookupErr == nil {
		addrs = resolved
	}
	for _, ip := range addrs {
		if isPrivateIP(ip) {
			return ErrSSRF
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
