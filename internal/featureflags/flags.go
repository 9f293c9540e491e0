// Package featureflags evaluates runtime toggles configured through FEATURE_FLAGS.
package featureflags

import (
	"errors"
	"fmt"
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
	"sync"
)

// EmailNotifications gates new-video emails to subscribers.
const EmailNotifications = "email_notifications"

// Flags holds toggles parsed from "name=value" pairs, e.g.
// "email_notifications=on,new_player=25%". Values are on/off, true/false, 1/0
// or a percentage rolled out deterministically per user.
type Flags struct {
	mu     sync.RWMutex
	values map[string]string
}

// Parse builds Flags from a comma-separated list. Malformed pairs are skipped.
func Parse(raw string) *Flags {
	values := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		values[name] = value
	}
	return &Flags{values: values}
}

// Enabled reports whether name is on for userID. A nil *Flags has every flag off.
func (f *Flags) Enabled(name string, userID uint) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	value, ok := f.values[normalize(name)]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	return evaluate(name, value, userID)
}

// Set overrides one flag at runtime.
func (f *Flags) Set(name, value string) error {
	name, value = normalize(name), normalize(value)
	if name == "" {
		return errors.New("flag name is required")
	}
	if !validValue(value) {
		return fmt.Errorf("unsupported flag value %q", value)
	}
	f.mu.Lock()
	f.values[name] = value
	f.mu.Unlock()
	return nil
}

// Raw returns a copy of the configured values.
func (f *Flags) Raw() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.values)
}

// Snapshot evaluates every flag for userID.
func (f *Flags) Snapshot(userID uint) map[string]bool {
	raw := f.Raw()
	out := make(map[string]bool, len(raw))
	for name, value := range raw {
		out[name] = evaluate(name, value, userID)
	}
	return out
}

func evaluate(name, value string, userID uint) bool {
	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, ok := percent(value)
	if !ok || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return bucket(name, userID) < pct
}

func validValue(value string) bool {
	switch value {
	case "on", "true", "1", "off", "false", "0":
		return true
	}
	_, ok := percent(value)
	return ok
}

func percent(value string) (int, bool) {
	raw, found := strings.CutSuffix(value, "%")
	if !found {
		return 0, false
	}
	pct, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return pct, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
