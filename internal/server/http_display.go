package server

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// displayServerInfo prints the endpoint list and the security posture.
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	fmt.Fprintln(w, "Available endpoints:")
	fmt.Fprintf(w, "  %-7s %-52s - %s\n", "GET", "/health", "Health check")
	fmt.Fprintf(w, "  %-7s %-52s - %s\n", "GET", "/stats", "Server statistics")
	for _, rt := range sessionRoutes {
		method, path, _ := strings.Cut(rt.pattern, " ")
		fmt.Fprintf(w, "  %-7s %-52s - %s\n", method, path, rt.summary)
	}

	if n := s.apiKeyCount(); n > 0 {
		fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", n)
		fmt.Fprintln(w, "Send 'X-API-Key: <key>' or 'Authorization: Bearer <key>' with every /sessions request")
		if s.keyWatcher != nil {
			fmt.Fprintln(w, "  - Keys are rotated from Vault")
		}
	} else {
		fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		fmt.Fprintln(w, "WARNING: API endpoints are publicly accessible!")
	}

	if s.MaxRequestSize > 0 {
		fmt.Fprintf(w, "Request size limit: %s\n", humanize.IBytes(uint64(s.MaxRequestSize)))
	} else {
		fmt.Fprintln(w, "Request size limit: DISABLED")
	}

	rl := s.RateLimit
	if rl == nil || !rl.Enabled {
		fmt.Fprintln(w, "Rate limiting: DISABLED")
		return
	}
	var scopes []string
	if rl.ByAPIKey {
		scopes = append(scopes, "API key")
	}
	if rl.ByIP {
		scopes = append(scopes, "client IP")
	}
	if len(scopes) == 0 {
		fmt.Fprintln(w, "Rate limiting: ENABLED but neither byAPIKey nor byIP is set, so no request is limited")
		return
	}
	fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst %d, per %s)\n",
		rl.RequestsPerMin, rl.BurstCapacity, strings.Join(scopes, " and "))
}
