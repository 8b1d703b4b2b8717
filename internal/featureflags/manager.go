// Package featureflags evaluates rollout flags configured through FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
)

// PersonalizedRecs gates tag-weighted recommendations; when off every caller gets the recent feed.
const PersonalizedRecs = "personalized_recs"

type rule struct {
	raw     string
	on      bool
	percent int // -1 when the value is a plain on/off switch
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "personalized_recs=25%,avatar_webp=on"
type Manager struct {
	mu    sync.RWMutex
	rules map[string]rule
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	m := &Manager{}
	m.Reload(raw)
	return m
}

// Reload replaces every flag with the ones parsed from raw.
// Unparseable entries are skipped.
func (m *Manager) Reload(raw string) {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[key] = r
		}
	}

	m.mu.Lock()
	m.rules = rules
	m.mu.Unlock()
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, on: true, percent: -1}, true
	case "off", "false", "0":
		return rule{raw: value, percent: -1}, true
	}
	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil {
			return rule{}, false
		}
		return rule{raw: value, percent: min(max(pct, 0), 100)}, true
	}
	return rule{}, false
}

// Enabled returns whether a flag is enabled for a given user.
// Percentage rollouts are deterministic per user and never include anonymous callers (userID 0)
// unless the rollout is 100%.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	m.mu.RLock()
	r, ok := m.rules[normalize(name)]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	switch {
	case r.percent < 0:
		return r.on
	case r.percent == 0:
		return false
	case r.percent >= 100:
		return true
	case userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// Raw returns the configured value of every flag, e.g. {"personalized_recs": "25%"}.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
