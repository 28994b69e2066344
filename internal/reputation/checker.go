// Package reputation checks hostnames against the remotely managed domain
// blacklist. Checks fail open: when the blacklist cannot be refreshed the
// checker reports no match and flags the result so callers can route it to
// manual review.
package reputation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/marek/jobshield/internal/factstore"
	"github.com/marek/jobshield/internal/types"
)

// BlacklistConfidence is reported for a blacklist hit. A listed domain is
// near-certain fraud, but the list itself can lag takedowns.
const BlacklistConfidence = 0.95

// minContainedRunes guards substring matching: the contained side must be
// at least this long and carry a dot, otherwise only exact matches count.
// Keeps entries like "jobs" from matching every job board.
const minContainedRunes = 6

// BlacklistProvider supplies the current blacklist snapshot
type BlacklistProvider interface {
	Blacklist(ctx context.Context) factstore.Snapshot[types.BlacklistDoc]
}

// Result is the outcome of one domain check
type Result struct {
	Domain       string    `json:"domain"`
	IsFraudulent bool      `json:"is_fraudulent"`
	Matched      string    `json:"matched,omitempty"`
	Confidence   float64   `json:"confidence"`
	Source       string    `json:"source"`
	FallbackUsed bool      `json:"fallback_used"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Checker matches normalized hostnames against blacklist entries
type Checker struct {
	provider BlacklistProvider

	mu         sync.RWMutex
	entriesKey string
	entries    []string
}

// NewChecker returns a Checker reading from provider
func NewChecker(provider BlacklistProvider) *Checker {
	return &Checker{provider: provider}
}

// Check normalizes raw (a hostname or URL) and matches it against the
// blacklist. An unusable blacklist yields a clean result with FallbackUsed
// set; only an empty hostname is an error.
func (c *Checker) Check(ctx context.Context, raw string) (Result, error) {
	host := NormalizeHost(raw)
	if host == "" {
		return Result{}, fmt.Errorf("no usable hostname in %q", raw)
	}

	result := Result{
		Domain:    host,
		Source:    types.MethodDomainBlacklist,
		CheckedAt: time.Now(),
	}

	snap := c.provider.Blacklist(ctx)
	if !snap.Usable() {
		result.FallbackUsed = true
		observeDomainCheck("fallback")
		return result, nil
	}
	result.FallbackUsed = snap.State == factstore.Stale

	for _, entry := range c.normalizedEntries(snap) {
		if matchesEntry(host, entry) {
			result.IsFraudulent = true
			result.Matched = entry
			result.Confidence = BlacklistConfidence
			observeDomainCheck("blacklisted")
			return result, nil
		}
	}

	observeDomainCheck("clean")
	return result, nil
}

// normalizedEntries returns the snapshot's entries normalized like hostnames,
// cached per snapshot so repeated checks skip the renormalization.
func (c *Checker) normalizedEntries(snap factstore.Snapshot[types.BlacklistDoc]) []string {
	key := fmt.Sprintf("%s|%d|%d", snap.Value.Version, snap.AsOf.UnixNano(), len(snap.Value.Domains))

	c.mu.RLock()
	if c.entriesKey == key {
		entries := c.entries
		c.mu.RUnlock()
		return entries
	}
	c.mu.RUnlock()

	entries := make([]string, 0, len(snap.Value.Domains))
	for _, d := range snap.Value.Domains {
		if normalized := NormalizeHost(d); normalized != "" {
			entries = append(entries, normalized)
		}
	}

	c.mu.Lock()
	c.entriesKey = key
	c.entries = entries
	c.mu.Unlock()
	return entries
}

// NormalizeHost lowercases and reduces raw to a bare hostname: scheme, path,
// port, trailing dot, and every leading "www." label are stripped. Returns ""
// when nothing hostname-like remains. Idempotent.
func NormalizeHost(raw string) string {
	host := strings.TrimSpace(strings.ToLower(raw))

	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	// Strip a port, but leave IPv6 literals alone
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host, "]") && strings.Count(host, ":") == 1 {
		host = host[:i]
	}
	host = strings.TrimSuffix(host, ".")
	for strings.HasPrefix(host, "www.") {
		host = strings.TrimPrefix(host, "www.")
	}
	return host
}

// matchesEntry reports whether host matches one blacklist entry. Exact
// matches always count; substring containment counts only when the contained
// side is specific enough (minContainedRunes and a dot).
func matchesEntry(host, entry string) bool {
	if entry == "" {
		return false
	}
	if host == entry {
		return true
	}
	if containable(entry) && strings.Contains(host, entry) {
		return true
	}
	if containable(host) && strings.Contains(entry, host) {
		return true
	}
	return false
}

func containable(s string) bool {
	return utf8.RuneCountInString(s) >= minContainedRunes && strings.Contains(s, ".")
}
