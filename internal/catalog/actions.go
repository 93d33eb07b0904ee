package catalog

// Action is the kind of work a request carries.
type Action string

// Request actions.
const (
	Read   Action = "READ"
	Write  Action = "WRITE"
	Search Action = "SEARCH"
	Upload Action = "UPLOAD"
	Scroll Action = "SCROLL"
	Sync   Action = "SYNC"
)

// ActionProfile weights an action's cost along each resource.
type ActionProfile struct {
	CPU       float64
	IO        float64
	Net       float64
	Cacheable bool
	HeavyCPU  bool
	MemCost   float64
}

var actions = map[Action]ActionProfile{
	Read:   {CPU: 1.0, IO: 1.0, Net: 0.8, Cacheable: true, MemCost: 0.5},
	Write:  {CPU: 1.2, IO: 1.8, Net: 0.3, MemCost: 0.9},
	Search: {CPU: 1.8, IO: 1.3, Net: 0.6, Cacheable: true, HeavyCPU: true, MemCost: 1.2},
	Upload: {CPU: 2.2, IO: 1.2, Net: 1.6, HeavyCPU: true, MemCost: 2.2},
	Scroll: {CPU: 1.1, IO: 0.9, Net: 1.2, Cacheable: true, MemCost: 0.6},
	Sync:   {CPU: 1.2, IO: 1.3, Net: 1.4, MemCost: 0.8},
}

// Profile returns the cost profile of a.
func Profile(a Action) ActionProfile { return actions[a] }

// MixEntry is one slice of the traffic mix.
type MixEntry struct {
	Action Action
	Share  float64
}

// TrafficMix is the fixed per-tick request mix, in spawn order.
var TrafficMix = []MixEntry{
	{Scroll, 0.28},
	{Read, 0.24},
	{Write, 0.15},
	{Search, 0.15},
	{Upload, 0.10},
	{Sync, 0.08},
}
