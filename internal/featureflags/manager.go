// Package featureflags evaluates the FEATURE_FLAGS switches that gate
// optional notification fan-out.
package featureflags

import (
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Known flags.
const (
	// EmergencyBroadcast gates the emergency fan-out to every hospital and
	// blood bank.
	EmergencyBroadcast = "emergency_broadcast"
	// LowStockAlerts gates the alert sent to a bank after a distribution
	// leaves it short.
	LowStockAlerts = "low_stock_alerts"
)

// Manager evaluates flags defined in a key=value list such as
// "emergency_broadcast=on,low_stock_alerts=25%".
type Manager struct {
	flags map[string]string
}

// NewManager parses a comma-separated flag list. Malformed pairs are ignored.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether name is on for the given profile id.
// Values: on/true/1, off/false/0, or N% for a deterministic rollout keyed on
// subjectID. A zero subjectID never falls inside a partial rollout.
func (m *Manager) Enabled(name string, subjectID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case subjectID == 0:
		return false
	}
	return bucket(name, subjectID) < pct
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m.flags)
}

// Snapshot evaluates every configured flag for one profile.
func (m *Manager) Snapshot(subjectID uint) map[string]bool {
	out := make(map[string]bool)
	if m == nil {
		return out
	}
	for name := range m.flags {
		out[name] = m.Enabled(name, subjectID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, subjectID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(subjectID), 10)))
	return int(h.Sum32() % 100)
}
