package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/gridquest/internal/config"
)

// ConnLimiter tracks and limits WebSocket connections per IP and in total.
type ConnLimiter struct {
	mu         sync.Mutex
	ipCounts   map[string]int
	totalCount int
	maxPerIP   int
	maxTotal   int
}

// NewConnLimiter creates a new connection limiter with the given config.
func NewConnLimiter(cfg config.ConnectionsConfig) *ConnLimiter {
	return &ConnLimiter{
		ipCounts: make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// TryAcquire takes a connection slot for ip. Returns false if that would
// exceed either limit.
func (c *ConnLimiter) TryAcquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.totalCount >= c.maxTotal {
		return false
	}
	if c.maxPerIP > 0 && c.ipCounts[ip] >= c.maxPerIP {
		return false
	}

	c.ipCounts[ip]++
	c.totalCount++
	return true
}

// Release gives back a slot taken by TryAcquire.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ipCounts[ip] == 0 {
		return
	}
	c.ipCounts[ip]--
	if c.ipCounts[ip] == 0 {
		delete(c.ipCounts, ip)
	}
	if c.totalCount > 0 {
		c.totalCount--
	}
}

// Stats returns the open connection count and the number of distinct IPs.
func (c *ConnLimiter) Stats() (total int, ips int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCount, len(c.ipCounts)
}

// IPCount returns the open connection count for ip.
func (c *ConnLimiter) IPCount(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ipCounts[ip]
}

// extractIP strips the port from an ip:port address.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// clientIP returns the caller's address. Forwarding headers are only read
// when the direct peer is a trusted proxy; otherwise anyone could pick the
// address the limiters key on.
func clientIP(r *http.Request, ws *config.WebSocketConfig) string {
	peer := extractIP(r.RemoteAddr)
	if ws == nil || !ws.IsTrustedProxy(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}
