package handlers

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// LoginLimit configures login throttling per client address.
// A zero PerMinute disables throttling. X-Forwarded-For is only honoured when
// the direct peer matches one of TrustedProxies (addresses or CIDR ranges).
type LoginLimit struct {
	PerMinute      int
	Burst          int
	TrustedProxies []string
}

const (
	limiterIdleTimeout     = 15 * time.Minute
	limiterCleanupInterval = 30 * time.Minute
)

type clientLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.Cache
	trusted []netip.Prefix
	now     func() time.Time
}

func newClientLimiter(cfg LoginLimit) *clientLimiter {
	if cfg.PerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limit:   rate.Limit(float64(cfg.PerMinute) / 60),
		burst:   burst,
		clients: cache.New(limiterIdleTimeout, limiterCleanupInterval),
		trusted: parseTrustedProxies(cfg.TrustedProxies),
		now:     time.Now,
	}
}

// Allow reports whether the client may attempt another login. A nil limiter allows everything.
func (l *clientLimiter) Allow(client string) bool {
	if l == nil {
		return true
	}
	limiter := l.limiterFor(client)
	// Refresh the idle expiry so active clients keep their bucket.
	l.clients.Set(client, limiter, cache.DefaultExpiration)
	return limiter.AllowN(l.now(), 1)
}

func (l *clientLimiter) limiterFor(client string) *rate.Limiter {
	if cached, ok := l.clients.Get(client); ok {
		return cached.(*rate.Limiter)
	}
	if err := l.clients.Add(client, rate.NewLimiter(l.limit, l.burst), cache.DefaultExpiration); err == nil {
		cached, _ := l.clients.Get(client)
		return cached.(*rate.Limiter)
	}
	// Another request inserted the client first.
	cached, ok := l.clients.Get(client)
	if !ok {
		return rate.NewLimiter(l.limit, l.burst)
	}
	return cached.(*rate.Limiter)
}

// clientAddress identifies the caller for throttling. The forwarded header is
// ignored unless the direct peer is a trusted proxy.
func (l *clientLimiter) clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if l == nil || len(l.trusted) == 0 {
		return host
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !l.isTrusted(peer.Unmap()) {
		return host
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return host
	}
	// Walk from the nearest hop back and stop at the first untrusted address.
	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			return host
		}
		if !l.isTrusted(addr.Unmap()) {
			return addr.Unmap().String()
		}
		host = addr.Unmap().String()
	}
	return host
}

func (l *clientLimiter) isTrusted(addr netip.Addr) bool {
	for _, prefix := range l.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseTrustedProxies(values []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(value); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(value); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}
