package httpclient

import (
	"fmt"
	"net"
	"net/url"
)

// lookupIP is swapped in tests.
var lookupIP = net.LookupIP

// IsSafeURL rejects URLs that are not http(s) or that resolve to private,
// loopback or link-local addresses.
func IsSafeURL(rawURL string) (bool, error) {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, fmt.Errorf("scheme not allowed: %s", parsed.Scheme)
	}

	host := parsed.Hostname()
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolved, err := lookupIP(host)
		if err != nil {
			return false, fmt.Errorf("resolve %s: %w", host, err)
		}
		ips = resolved
	}
	if len(ips) == 0 {
		return false, fmt.Errorf("no addresses for %s", host)
	}
	for _, ip := range ips {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return false, fmt.Errorf("restricted address %s", ip)
		}
	}
	return true, nil
}
