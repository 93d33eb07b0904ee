package catalog

// Layer orders archetypes from presentation (0) to data/infrastructure (4).
type Layer int

const (
	LayerPresentation Layer = iota
	LayerState
	LayerBusiness
	LayerData
	LayerInfra
)

var layerNames = [...]string{"presentation", "state", "business rules", "data orchestration", "data/infra"}

func (l Layer) String() string {
	if l < 0 || int(l) >= len(layerNames) {
		return "sidecar"
	}
	return layerNames[l]
}

var layers = map[Kind]Layer{
	UI:     LayerPresentation,
	VM:     LayerState,
	Domain: LayerBusiness,
	Work:   LayerBusiness,
	Repo:   LayerData,
	Cache:  LayerInfra,
	DB:     LayerInfra,
	Net:    LayerInfra,
}

// LayerOf returns the layer of k; ok is false for sidecars.
func LayerOf(k Kind) (Layer, bool) {
	l, ok := layers[k]
	return l, ok
}

// Dep is a third-party dependency family a component may carry.
type Dep string

const (
	DepNet       Dep = "net"
	DepImage     Dep = "image"
	DepJSON      Dep = "json"
	DepAuth      Dep = "auth"
	DepAnalytics Dep = "analytics"
)

// AllDeps lists dependency families in advisory roll order.
var AllDeps = []Dep{DepNet, DepImage, DepJSON, DepAuth, DepAnalytics}

// Carries reports whether archetype k depends on d.
func Carries(k Kind, d Dep) bool {
	for _, x := range archetypes[k].Deps {
		if x == d {
			return true
		}
	}
	return false
}
