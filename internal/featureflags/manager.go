// Package featureflags evaluates runtime switches such as review
// pre-moderation.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Known flags.
const (
	// ReviewPremoderation holds new product reviews as pending until a
	// moderator dismisses the report filed for them.
	ReviewPremoderation = "review_premoderation"
	// ExpertBadges marks items written by moderators as expert content.
	ExpertBadges = "expert_badges"
)

var defaults = map[string]string{
	ReviewPremoderation: "off",
	ExpertBadges:        "on",
}

// Manager evaluates feature flags defined in a key=value list, e.g.
// "review_premoderation=on,expert_badges=off". Values may be on/off or a
// deterministic per-user rollout percentage such as 25%.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]string
}

// NewManager creates a manager from a comma-separated config string layered
// over the built-in defaults.
func NewManager(raw string) *Manager {
	m := &Manager{}
	m.Reload(raw)
	return m
}

// Reload replaces the configured flags.
func (m *Manager) Reload(raw string) {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range parse(raw) {
		out[k] = v
	}

	m.mu.Lock()
	m.flags = out
	m.mu.Unlock()
}

// Set overrides a single flag. Invalid values are rejected.
func (m *Manager) Set(name, value string) error {
	name, value = normalize(name), normalize(value)
	if name == "" {
		return fmt.Errorf("flag name is required")
	}
	if !validValue(value) {
		return fmt.Errorf("invalid value %q for flag %s", value, name)
	}
	m.mu.Lock()
	m.flags[name] = value
	m.mu.Unlock()
	return nil
}

// Enabled returns whether a flag is enabled for a given user. Unknown flags
// are off, and percentage rollouts are off for anonymous callers.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	m.mu.RLock()
	value, ok := m.flags[normalize(name)]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, ok := percentage(value)
	if !ok || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Names returns the configured flag names in order.
func (m *Manager) Names() []string {
	raw := m.Raw()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	names := m.Names()
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func parse(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := normalize(parts[0]), normalize(parts[1])
		if key == "" || !validValue(value) {
			continue
		}
		out[key] = value
	}
	return out
}

func validValue(v string) bool {
	switch v {
	case "on", "off", "true", "false", "1", "0":
		return true
	}
	_, ok := percentage(v)
	return ok
}

func percentage(v string) (int, bool) {
	if !strings.HasSuffix(v, "%") {
		return 0, false
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(v, "%"))
	if err != nil {
		return 0, false
	}
	return pct, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
