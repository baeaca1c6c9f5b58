package helper

import (
	"net"
	"strings"
)

// MatchHost reports whether address ("host" or "host:port") matches any
// pattern in hosts. A pattern may omit its port to match any port on that
// host, and may start with "*." to match any subdomain.
func MatchHost(address string, hosts []string) bool {
	host, port := splitHostPort(address)
	for _, pattern := range hosts {
		patternHost, patternPort := splitHostPort(pattern)
		if patternPort != "" && patternPort != port {
			continue
		}
		if strings.HasPrefix(patternHost, "*.") {
			if strings.HasSuffix(host, patternHost[1:]) {
				return true
			}
			continue
		}
		if host == patternHost {
			return true
		}
	}
	return false
}

func splitHostPort(hostport string) (host, port string) {
	if h, p, err := net.SplitHostPort(hostport); err == nil {
		return h, p
	}
	return hostport, ""
}
