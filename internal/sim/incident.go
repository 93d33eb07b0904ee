package sim

import "archops-sim/internal/catalog"

// IncidentKind names an entry of the incident table.
type IncidentKind string

// Incident kinds.
const (
	IncidentTrafficSpike   IncidentKind = "TRAFFIC_SPIKE"
	IncidentNetWobble      IncidentKind = "NET_WOBBLE"
	IncidentOEMRestriction IncidentKind = "OEM_RESTRICTION"
	IncidentCredStuffing   IncidentKind = "CRED_STUFFING"
	IncidentTokenTheft     IncidentKind = "TOKEN_THEFT"
	IncidentDeepLinkAbuse  IncidentKind = "DEEP_LINK_ABUSE"
	IncidentMITM           IncidentKind = "MITM"
	IncidentCertRotation   IncidentKind = "CERT_ROTATION"
	IncidentA11yRegression IncidentKind = "A11Y_REGRESSION"
	IncidentSDKScandal     IncidentKind = "SDK_SCANDAL"
)

var incidentTable = []struct {
	kind   IncidentKind
	weight float64
}{
	{IncidentTrafficSpike, 0.18},
	{IncidentNetWobble, 0.16},
	{IncidentOEMRestriction, 0.14},
	{IncidentCredStuffing, 0.08},
	{IncidentTokenTheft, 0.10},
	{IncidentDeepLinkAbuse, 0.08},
	{IncidentMITM, 0.10},
	{IncidentCertRotation, 0.06},
	{IncidentA11yRegression, 0.06},
	{IncidentSDKScandal, 0.04},
}

const (
	incidentCooldown = 26
	shieldRefund     = 0.60
	maxModifier      = 3.0
)

// effect is an incident's outcome before it is committed.
type effect struct {
	spawn, net, work        float64
	support                 float64
	privacy, security, a11y float64
	rating                  float64
	mainPathDamage          bool
	message                 string
}

// shield refunds part of the user-facing penalties. Modifier changes are not refunded.
func (e *effect) shield() {
	keep := 1 - shieldRefund
	if e.support > 0 {
		e.support *= keep
	}
	if e.privacy < 0 {
		e.privacy *= keep
	}
	if e.security < 0 {
		e.security *= keep
	}
	if e.a11y < 0 {
		e.a11y *= keep
	}
	if e.rating < 0 {
		e.rating *= keep
	}
}

// decayModifiers eases incident multipliers back toward 1 every tick.
func (s *Simulator) decayModifiers() {
	m := &s.mods
	m.spawnMul = 1 + (m.spawnMul-1)*0.985
	m.netBadness = 1 + (m.netBadness-1)*0.988
	m.workRestriction = 1 + (m.workRestriction-1)*0.989
	s.perception.SupportLoad = clamp(s.perception.SupportLoad-0.08, 0, 100)
}

func (s *Simulator) maybeIncident() {
	s.decayModifiers()
	if s.timeSec-s.lastIncidentAt < incidentCooldown {
		return
	}
	chance := clamp(0.44+(1-s.perception.Security/100)*0.10, 0.35, 0.60)
	if !s.gen.Chance(chance) {
		return
	}
	weights := make([]float64, len(incidentTable))
	for i, e := range incidentTable {
		weights[i] = e.weight
	}
	s.fireIncident(incidentTable[s.gen.Pick(weights)].kind)
}

// fireIncident resolves an incident of kind against the current mitigations.
func (s *Simulator) fireIncident(kind IncidentKind) {
	s.lastIncidentAt = s.timeSec
	s.incidents++

	e := s.resolveIncident(kind)
	if s.capacity.shieldCharges > 0 && e.penalizing() {
		s.capacity.shieldCharges--
		e.shield()
		e.message += " Shield absorbed part of the hit."
	}
	s.commit(e)

	s.capacity.adrenalineUntil = s.timeSec + adrenalineSec
	s.logf(CategoryIncident, "%s", e.message)
	s.verify()
}

func (e effect) penalizing() bool {
	return e.support > 0 || e.privacy < 0 || e.security < 0 || e.a11y < 0 || e.rating < 0
}

func (s *Simulator) resolveIncident(kind IncidentKind) effect {
	abuse := s.tierOf(catalog.Abuse)
	pin := s.tierOf(catalog.Pinning)

	switch kind {
	case IncidentTrafficSpike:
		damp := 1.0
		if abuse > 0 {
			damp = 0.65 - 0.08*float64(abuse-1)
		}
		return effect{spawn: 0.25 * damp, support: 2 + boolf(abuse == 0, 3, 1), message: "Marketing spike: action load increased."}

	case IncidentNetWobble:
		return effect{net: 0.25 * boolf(s.has(catalog.Obs), 0.85, 1), support: 3, message: "Backend wobbles: network failures increased."}

	case IncidentOEMRestriction:
		return effect{work: 0.35, support: 2, message: "OEM restriction: background work drains more."}

	case IncidentMITM:
		if pin == 0 {
			return effect{
				privacy:  -s.gen.Range(18, 28),
				security: -s.gen.Range(22, 32),
				net:      0.15,
				support:  10,
				rating:   -0.22,
				message:  "MITM attempt: user trust took a hit (add TLS pinning).",
			}
		}
		return effect{net: 0.05, support: 2, message: "MITM attempt blocked by TLS pinning."}

	case IncidentCertRotation:
		switch pin {
		case 0:
			return effect{net: 0.18, support: 3, message: "Cert rotation upstream: brief network turbulence."}
		case 1:
			return effect{net: 0.35, support: 12, rating: -0.15, message: "Cert rotated: pinning broke requests (upgrade pinning or use flags)."}
		}
		return effect{net: 0.12, support: 4, message: "Cert rotated: pinning handled it (minor hiccup)."}

	case IncidentTokenTheft:
		if !s.has(catalog.Auth) {
			return effect{privacy: -8, security: -22, support: 15, rating: -0.18, message: "Session/token issue: account takeovers reported (add Auth hardening)."}
		}
		return effect{support: 3, message: "Suspicious sessions detected and contained by Auth."}

	case IncidentCredStuffing:
		if abuse == 0 {
			return effect{net: 0.22, spawn: 0.12, support: 14, message: "Credential stuffing: auth endpoints hammered (add Abuse protection)."}
		}
		return effect{net: 0.10, support: 5, message: "Credential stuffing mitigated by rate limiting."}

	case IncidentDeepLinkAbuse:
		if !s.has(catalog.Sanitizer) {
			return effect{mainPathDamage: true, support: 10, rating: -0.12, message: "Deep link abuse: malformed inputs causing crashes (add Sanitizer)."}
		}
		return effect{support: 3, message: "Deep link abuse attempt sanitized."}

	case IncidentA11yRegression:
		if !s.has(catalog.A11y) {
			return effect{a11y: -s.gen.Range(22, 32), support: 8, rating: -0.10, message: "A11y regression shipped: labels/contrast complaints (add A11y layer)."}
		}
		return effect{a11y: -s.gen.Range(6, 12), support: 3, message: "Minor accessibility regression caught (A11y layer helps)."}

	case IncidentSDKScandal:
		blast := boolf(s.tierOf(catalog.Flags) >= 2, 0.55, 1)
		if !s.has(catalog.Keystore) {
			return effect{privacy: -25 * blast, security: -10 * blast, support: 12, rating: -0.18 * blast, message: "3rd-party SDK scandal: privacy trust tanking (add Keystore/Crypto + flags)."}
		}
		return effect{privacy: -10 * blast, security: -4 * blast, support: 6, rating: -0.08 * blast, message: "3rd-party SDK issue: reduced impact due to crypto hardening."}
	}
	return effect{message: string(kind)}
}

func (s *Simulator) commit(e effect) {
	m := &s.mods
	m.spawnMul = clamp(m.spawnMul+e.spawn, 1, maxModifier)
	m.netBadness = clamp(m.netBadness+e.net, 1, maxModifier)
	m.workRestriction = clamp(m.workRestriction+e.work, 1, maxModifier)

	p := &s.perception
	p.SupportLoad = clamp(p.SupportLoad+e.support, 0, 100)
	p.Privacy = clamp(p.Privacy+e.privacy, 0, 100)
	p.Security = clamp(p.Security+e.security, 0, 100)
	p.A11y = clamp(p.A11y+e.a11y, 0, 100)
	s.adjustRating(e.rating)

	if e.mainPathDamage {
		for _, k := range []catalog.Kind{catalog.UI, catalog.VM, catalog.Domain} {
			for _, c := range s.components {
				if c.Kind == k && !c.Down {
					s.damage(c, s.gen.Range(12, 22))
					break
				}
			}
		}
	}
}

// TriggerIncident fires an incident immediately, ignoring cooldown and chance.
// Scenarios use it to script chaos.
func (s *Simulator) TriggerIncident(kind IncidentKind) Result {
	if s.ended {
		return reject(ReasonRunEnded)
	}
	for _, e := range incidentTable {
		if e.kind == kind {
			s.fireIncident(kind)
			return accepted()
		}
	}
	return reject(ReasonUnknownAction)
}

// Incidents returns how many incidents fired this run.
func (s *Simulator) Incidents() int { return s.incidents }
