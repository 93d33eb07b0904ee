package sim

import (
	"fmt"
	"strings"

	"archops-sim/internal/catalog"
)

// Preset selects how strictly a run is evaluated.
type Preset string

// Evaluation presets, loosest first.
const (
	PresetJuniorMid Preset = "JUNIOR_MID"
	PresetSenior    Preset = "SENIOR"
	PresetStaff     Preset = "STAFF"
	PresetPrincipal Preset = "PRINCIPAL"
)

// ParsePreset resolves a preset name case-insensitively.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PresetJuniorMid, PresetSenior, PresetStaff, PresetPrincipal:
		return p, nil
	case "":
		return PresetJuniorMid, nil
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// Bounds is the size of the host's editing surface. The engine only uses it
// to lay out the starter graph.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Position is an opaque host coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Component is a placed archetype instance.
type Component struct {
	ID       int          `json:"id"`
	Kind     catalog.Kind `json:"kind"`
	Pos      Position     `json:"pos"`
	Tier     int          `json:"tier"`
	Health   float64      `json:"health"`
	Down     bool         `json:"down"`
	Cap      float64      `json:"cap"`
	Lat      float64      `json:"lat"`
	Fail     float64      `json:"fail"`
	Load     float64      `json:"load"`
	QueueLen int          `json:"queue"`

	queue []Request
}

// Link is a directed dependency between two components.
type Link struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Key returns the "from->to" form used to target a link.
func (l Link) Key() string { return fmt.Sprintf("%d->%d", l.From, l.To) }

// RequestTTL is the number of ticks a request survives in queues.
const RequestTTL = 20

// Request is a transient unit of simulated work.
type Request struct {
	Action catalog.Action
	TTL    int
}

// Result reports whether a command was applied.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func accepted() Result { return Result{OK: true} }

func reject(reason string) Result { return Result{Reason: reason} }

// Rejection reasons.
const (
	ReasonBudget        = "Not enough budget"
	ReasonNoSelection   = "Nothing selected"
	ReasonMaxTier       = "Already max tier"
	ReasonHealthy       = "Already healthy"
	ReasonUnknownKind   = "Unknown component kind"
	ReasonNoComponent   = "No such component"
	ReasonSelfLink      = "Cannot link a component to itself"
	ReasonDuplicateLink = "Link already exists"
	ReasonNoLink        = "No such link"
	ReasonLintRejected  = "Rejected by architecture rules"
	ReasonNoTicket      = "No such ticket"
	ReasonCapacity      = "Not enough engineering capacity"
	ReasonUnknownAction = "Unknown refactor action"
	ReasonRunEnded      = "Run has ended"
	ReasonCapacityFull  = "Capacity already full"
	ReasonLimit         = "Purchase limit reached"
	ReasonLocked        = "Not unlocked"
	ReasonActive        = "Already active"
	ReasonCooldown      = "Cooling down"
	ReasonShieldCharged = "Shield already charged"
)

// Tech holds the derived technical metrics of the running system.
type Tech struct {
	FailureRate  float64 `json:"failure_rate"`
	ANRRisk      float64 `json:"anr_risk"`
	P95Ms        float64 `json:"p95_latency_ms"`
	JankPct      float64 `json:"jank_pct"`
	HeapMB       float64 `json:"heap_mb"`
	HeapMaxMB    float64 `json:"heap_max_mb"`
	GCPauseMs    float64 `json:"gc_pause_ms"`
	MainThreadMs float64 `json:"main_thread_ms"`
	OOMCount     int     `json:"oom_count"`
	Battery      float64 `json:"battery"`
}

// Perception holds the user-facing trust metrics, each in [0,100].
type Perception struct {
	A11y        float64 `json:"a11y"`
	Privacy     float64 `json:"privacy"`
	Security    float64 `json:"security"`
	SupportLoad float64 `json:"support_load"`
}

// Votes are running totals of user complaints by category.
type Votes struct {
	Perf        int `json:"perf"`
	Reliability int `json:"reliability"`
	Privacy     int `json:"privacy"`
	A11y        int `json:"a11y"`
	Battery     int `json:"battery"`
}

// patches records partial remediations applied by fixing tickets. Each is in [0,1].
type patches struct {
	crash, anr, jank, heap, battery float64
	a11y, privacy, security, compat float64
	zeroDay                         float64
}

// modifiers are incident-driven global multipliers.
type modifiers struct {
	spawnMul        float64
	netBadness      float64
	workRestriction float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
