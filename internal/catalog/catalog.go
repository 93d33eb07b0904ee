// Package catalog holds the static tables of component archetypes, request actions
// and third-party dependency exposure.
package catalog

import (
	"fmt"
	"strings"
)

// Kind names a component archetype.
type Kind string

// Component archetypes.
const (
	UI        Kind = "UI"
	VM        Kind = "VM"
	Domain    Kind = "DOMAIN"
	Repo      Kind = "REPO"
	Cache     Kind = "CACHE"
	DB        Kind = "DB"
	Net       Kind = "NET"
	Work      Kind = "WORK"
	Obs       Kind = "OBS"
	Flags     Kind = "FLAGS"
	Auth      Kind = "AUTH"
	Pinning   Kind = "PINNING"
	Keystore  Kind = "KEYSTORE"
	Sanitizer Kind = "SANITIZER"
	Abuse     Kind = "ABUSE"
	A11y      Kind = "A11Y"
)

// MaxTier is the highest upgrade level.
const MaxTier = 3

// Archetype describes the base characteristics of a component kind.
type Archetype struct {
	Kind        Kind
	Name        string
	Description string
	BaseCap     float64
	BaseLat     float64
	BaseFail    float64
	Cost        int
	// UpgradeCost[t] is the price of moving from tier t to t+1.
	UpgradeCost [MaxTier + 1]int
	Deps        []Dep
}

// Kinds lists every archetype in catalog order.
var Kinds = []Kind{UI, VM, Domain, Repo, Cache, DB, Net, Work, Obs, Flags, Auth, Pinning, Keystore, Sanitizer, Abuse, A11y}

var archetypes = map[Kind]Archetype{
	UI:        {UI, "UI", "Presentation layer. Entry point for user traffic.", 14, 10, 0.004, 40, [4]int{0, 60, 90, 0}, []Dep{DepImage}},
	VM:        {VM, "ViewModel", "UI state holder. Sits on the main path.", 12, 8, 0.003, 45, [4]int{0, 70, 110, 0}, nil},
	Domain:    {Domain, "Domain", "Business rules and use cases.", 11, 9, 0.003, 55, [4]int{0, 80, 120, 0}, []Dep{DepJSON}},
	Repo:      {Repo, "Repository", "Data orchestration. Fans out to cache, database and network.", 10, 10, 0.004, 70, [4]int{0, 95, 140, 0}, []Dep{DepJSON}},
	Cache:     {Cache, "Cache", "Memory/disk cache. Hit rate improves with tier.", 16, 3, 0.002, 90, [4]int{0, 120, 170, 0}, nil},
	DB:        {DB, "Database", "Local persistence. Slow under heavy IO.", 8, 20, 0.006, 120, [4]int{0, 160, 220, 0}, nil},
	Net:       {Net, "Network", "Remote API client. Sensitive to network conditions.", 9, 25, 0.010, 110, [4]int{0, 150, 210, 0}, []Dep{DepNet, DepJSON}},
	Work:      {Work, "Background Work", "Deferred jobs and sync. Drains battery.", 6, 18, 0.008, 80, [4]int{0, 120, 170, 0}, []Dep{DepNet, DepJSON}},
	Obs:       {Obs, "Observability", "Crash reporting and tracing. Discounts failures and repair costs.", 99, 0, 0.001, 60, [4]int{0, 80, 110, 0}, []Dep{DepAnalytics}},
	Flags:     {Flags, "Feature Flags", "Kill switches. Shrinks the blast radius of failures.", 99, 0, 0.001, 60, [4]int{0, 80, 110, 0}, nil},
	Auth:      {Auth, "Auth Hardening", "Token binding and refresh rotation.", 99, 0, 0.001, 75, [4]int{0, 110, 160, 0}, []Dep{DepAuth, DepNet}},
	Pinning:   {Pinning, "Certificate Pinning", "Blocks interception. Needs care during rotations.", 99, 0, 0.001, 85, [4]int{0, 120, 175, 0}, []Dep{DepNet}},
	Keystore:  {Keystore, "Keystore", "Hardware-backed secrets storage.", 99, 0, 0.001, 95, [4]int{0, 130, 190, 0}, nil},
	Sanitizer: {Sanitizer, "Input Sanitizer", "Validates deep links and payloads.", 99, 0, 0.001, 70, [4]int{0, 105, 150, 0}, []Dep{DepJSON}},
	Abuse:     {Abuse, "Abuse Protection", "Rate limits and bot detection.", 99, 0, 0.001, 80, [4]int{0, 115, 165, 0}, []Dep{DepNet}},
	A11y:      {A11y, "Accessibility Layer", "Semantics and contrast checks.", 99, 0, 0.001, 70, [4]int{0, 100, 145, 0}, nil},
}

// Lookup returns the archetype for k.
func Lookup(k Kind) (Archetype, bool) {
	a, ok := archetypes[k]
	return a, ok
}

// MustLookup returns the archetype for k and panics for unknown kinds.
func MustLookup(k Kind) Archetype {
	a, ok := archetypes[k]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown kind %q", k))
	}
	return a
}

// Parse resolves a kind name case-insensitively.
func Parse(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := archetypes[k]; !ok {
		return "", fmt.Errorf("unknown component kind %q", s)
	}
	return k, nil
}

// TierMultiplier scales capacity by tier.
func TierMultiplier(tier int) float64 {
	switch tier {
	case 2:
		return 1.45
	case 3:
		return 2.05
	default:
		return 1.0
	}
}

// IsSidecar reports whether k sits outside the request path.
func IsSidecar(k Kind) bool {
	_, layered := layers[k]
	return !layered
}

// IsIOSink reports whether k does disk or network IO.
func IsIOSink(k Kind) bool {
	return k == Cache || k == DB || k == Net
}

// IsMainPath reports whether k runs on the UI thread.
func IsMainPath(k Kind) bool {
	return k == UI || k == VM || k == Domain
}
