// Package featureflags evaluates runtime toggles from a "name=value" list in
// config, e.g. "paypal_checkout=on,top_categories=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Platform flags the server consults.
const (
	// PayPalCheckout gates the storefront order/capture endpoints.
	PayPalCheckout = "paypal_checkout"
	// GiftMessages gates solcito gifts attached to chat messages.
	GiftMessages = "gift_messages"
	// TopCategories gates the category rail on the catalog payload.
	TopCategories = "top_categories"
)

// defaults apply when config does not mention a flag.
var defaults = map[string]string{
	PayPalCheckout: "on",
	GiftMessages:   "on",
	TopCategories:  "on",
}

// Manager evaluates flag state per user. Values: on/true/1, off/false/0, or
// "N%" for a deterministic per-user rollout.
type Manager struct {
	flags map[string]string
}

// NewManager parses a comma-separated flag list and layers it over the
// platform defaults. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	flags := make(map[string]string, len(defaults))
	for name, value := range defaults {
		flags[name] = value
	}

	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		flags[name] = value
	}

	return &Manager{flags: flags}
}

// Enabled reports whether the flag is on for the given user. Unknown flags
// are off. Percentage rollouts are deterministic per (flag, user) and always
// off for anonymous users.
func (m *Manager) Enabled(name string, userID uint) bool {
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

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
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

// Raw returns a copy of the effective flag values.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for name, value := range m.flags {
		out[name] = value
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
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
