// Package emailcheck validates email addresses for format and
// deliverability (MX presence on the domain).
package emailcheck

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Reason codes returned alongside a negative validity result.
const (
	ReasonInvalidFormat = "invalid_format"
	ReasonNoMXRecord    = "no_mx_record"
)

const (
	cacheSize = 50000
	cacheTTL  = time.Hour
	dnsBudget = 4 * time.Second
)

var formatRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result is the outcome of a validity check.
type Result struct {
	Valid  bool
	Reason string // empty when Valid
}

// Checker validates emails with a bounded TTL cache of per-domain MX
// results. The cache is an explicit field so tests and callers control its
// lifetime; there is no package-level state.
type Checker struct {
	resolver *net.Resolver
	cache    *expirable.LRU[string, bool]
	logger   *zap.Logger
}

// New creates a Checker with the default resolver and cache bounds
// (50k domains, 1h TTL).
func New(logger *zap.Logger) *Checker {
	return &Checker{
		resolver: net.DefaultResolver,
		cache:    expirable.NewLRU[string, bool](cacheSize, nil, cacheTTL),
		logger:   logger,
	}
}

// ValidFormat reports whether the address passes the format check alone.
func ValidFormat(email string) bool {
	return formatRe.MatchString(strings.TrimSpace(email))
}

// Check validates format first, then MX presence on the domain.
func (c *Checker) Check(ctx context.Context, email string) Result {
	email = strings.TrimSpace(email)
	if !formatRe.MatchString(email) {
		return Result{Valid: false, Reason: ReasonInvalidFormat}
	}

	domain := email[strings.LastIndex(email, "@")+1:]
	if c.CheckDomain(ctx, domain) {
		return Result{Valid: true}
	}
	return Result{Valid: false, Reason: ReasonNoMXRecord}
}

// CheckDomain reports whether the domain has at least one MX record.
// Definitive negatives (NXDOMAIN, empty answer) are cached; transient
// resolver failures are not cached and get the benefit of the doubt.
func (c *Checker) CheckDomain(ctx context.Context, domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}

	if hasMX, ok := c.cache.Get(domain); ok {
		return hasMX
	}

	ctx, cancel := context.WithTimeout(ctx, dnsBudget)
	defer cancel()

	records, err := c.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			c.cache.Add(domain, false)
			return false
		}
		// Timeouts and server failures might be temporary; leave the
		// domain uncached and give it the benefit of the doubt.
		c.logger.Debug("mx lookup inconclusive", zap.String("domain", domain), zap.Error(err))
		return true
	}

	hasMX := len(records) > 0
	c.cache.Add(domain, hasMX)
	return hasMX
}

// CheckDomains resolves a batch of domains, deduplicating and
// lower-casing, and returns per-domain validity.
func (c *Checker) CheckDomains(ctx context.Context, domains []string) map[string]bool {
	results := make(map[string]bool, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, done := results[d]; done {
			continue
		}
		results[d] = c.CheckDomain(ctx, d)
	}
	return results
}
