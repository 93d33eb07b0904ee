package sim

import (
	"fmt"
	"math"
	"strings"

	"archops-sim/internal/catalog"
)

// Platform tracks the device landscape the app ships into.
type Platform struct {
	LatestAPI      int     `json:"latest_api"`
	MinAPI         int     `json:"min_api"`
	OldDeviceShare float64 `json:"old_device_share"`
	LowRAMShare    float64 `json:"low_ram_share"`
	Pressure       float64 `json:"pressure"`
}

func newPlatform() Platform {
	return Platform{LatestAPI: 35, MinAPI: 26, OldDeviceShare: 0.28, LowRAMShare: 0.30}
}

// RegionCode names a market.
type RegionCode string

// Markets in their fixed order.
const (
	RegionEU RegionCode = "EU"
	RegionUS RegionCode = "US"
	RegionUK RegionCode = "UK"
	RegionIN RegionCode = "IN"
	RegionBR RegionCode = "BR"
)

// Region is one market's compliance state.
type Region struct {
	Code       RegionCode `json:"code"`
	Share      float64    `json:"share"`
	Compliance float64    `json:"compliance"`
	Pressure   float64    `json:"pressure"`
	FrozenSec  int        `json:"frozen_sec"`
}

func newRegions() []Region {
	return []Region{
		{Code: RegionEU, Share: 0.40, Compliance: 86},
		{Code: RegionUS, Share: 0.35, Compliance: 84},
		{Code: RegionUK, Share: 0.10, Compliance: 85},
		{Code: RegionIN, Share: 0.08, Compliance: 83},
		{Code: RegionBR, Share: 0.07, Compliance: 83},
	}
}

// strictness is the privacy plus security bar a market holds the app to.
var strictness = map[RegionCode]float64{
	RegionEU: 10 + 4,
	RegionUK: 8 + 4,
	RegionUS: 2 + 10,
	RegionIN: 4 + 6,
	RegionBR: 6 + 6,
}

// Advisory is a published vulnerability in a third-party dependency.
type Advisory struct {
	ID        int         `json:"id"`
	Dep       catalog.Dep `json:"dep"`
	Title     string      `json:"title"`
	Severity  int         `json:"severity"`
	AgeSec    int         `json:"age_sec"`
	Mitigated bool        `json:"mitigated"`
}

const (
	platformReleaseEvery = 180
	platformHintEvery    = 240
	advisoryEvery        = 210
	storeRiskEvery       = 60
	auditEvery           = 75
	regionFreezeSec      = 45
	complianceFloor      = 55
)

func (s *Simulator) tickPlatform() {
	p := &s.platform
	p.OldDeviceShare = clamp(p.OldDeviceShare-0.00018, 0.06, 0.40)
	p.LowRAMShare = clamp(p.LowRAMShare-0.00015, 0.08, 0.45)

	if s.timeSec%platformReleaseEvery == 0 && s.gen.Chance(0.35) {
		p.LatestAPI++
		p.Pressure = clamp(p.Pressure+0.65, 0, 1)
		s.logf(CategoryOther, "New platform API %d released", p.LatestAPI)
	}
	p.Pressure = clamp(p.Pressure*0.985-0.0005, 0, 1)

	if s.timeSec%platformHintEvery == 0 && p.OldDeviceShare < 0.12 && p.MinAPI < p.LatestAPI-9 {
		s.openTicket(TicketCompatPlatform, fmt.Sprintf("Consider dropping API %d support", p.MinAPI), CategoryPlatform, 1, 35, 3)
	}
}

func (s *Simulator) zeroDayActive() bool {
	for _, a := range s.advisories {
		if !a.Mitigated {
			return true
		}
	}
	return false
}

func (s *Simulator) tickZeroDay() {
	p := &s.perception
	if s.zeroDayActive() {
		exposure := clamp(1-(s.patch.security*0.6+s.patch.zeroDay*0.6), 0, 1)
		p.Security = clamp(p.Security-0.10*exposure, 0, 100)
		p.Privacy = clamp(p.Privacy-0.06*exposure, 0, 100)
	}

	if s.timeSec <= 30 || s.timeSec%advisoryEvery != 0 || !s.gen.Chance(0.28) {
		return
	}
	dep := catalog.AllDeps[s.gen.Int(0, len(catalog.AllDeps)-1)]
	sev := 1
	switch {
	case s.gen.Chance(0.35):
		sev = 3
	case s.gen.Chance(0.65):
		sev = 2
	}
	if !s.carriesDep(dep) || s.depMitigated(dep) {
		return
	}

	a := &Advisory{
		ID:       s.nextAdvisoryID,
		Dep:      dep,
		Title:    fmt.Sprintf("Zero-day in %s dependency", strings.ToUpper(string(dep))),
		Severity: sev,
	}
	s.nextAdvisoryID++
	s.advisories = append(s.advisories, a)
	s.logf(CategoryOther, "%s", a.Title)

	p.Security = clamp(p.Security-float64(sev+1)*6, 0, 100)
	p.Privacy = clamp(p.Privacy-float64(sev+1)*4, 0, 100)
	s.openTicket(TicketSecurityExposure, fmt.Sprintf("Patch zero-day: %s", dep), CategorySecurity, 3, 92, 6)
}

func (s *Simulator) carriesDep(d catalog.Dep) bool {
	for _, c := range s.components {
		if catalog.Carries(c.Kind, d) {
			return true
		}
	}
	return false
}

func (s *Simulator) depMitigated(d catalog.Dep) bool {
	switch d {
	case catalog.DepNet:
		return s.tierOf(catalog.Pinning) >= 2 || s.tierOf(catalog.Abuse) >= 2
	case catalog.DepAuth:
		return s.tierOf(catalog.Auth) >= 2
	case catalog.DepJSON:
		return s.tierOf(catalog.Sanitizer) >= 2
	case catalog.DepImage:
		return s.patch.heap > 0.2
	case catalog.DepAnalytics:
		return s.tierOf(catalog.Obs) >= 2
	}
	return false
}

// regionTarget is the compliance level a market converges on given current trust.
func (s *Simulator) regionTarget(code RegionCode) float64 {
	p := s.perception
	base := 0.45*p.Privacy + 0.40*p.Security + 0.15*p.A11y
	controls := boolf(s.has(catalog.Flags), 2.0, 0) + boolf(s.has(catalog.Obs), 1.5, 0) +
		boolf(s.has(catalog.Keystore), 2.0, 0) + boolf(s.has(catalog.Sanitizer), 1.5, 0)
	return clamp(base+controls-s.platform.Pressure*8-strictness[code], 35, 98)
}

func (s *Simulator) tickRegions() {
	zeroDay := s.zeroDayActive()
	zPressure := boolf(zeroDay, 0.55, 0)

	weighted := 0.0
	for i := range s.regions {
		r := &s.regions[i]
		decay := (zPressure + s.platform.Pressure*0.35) * boolf(r.Code == RegionEU || r.Code == RegionUK, 1.15, 1)
		r.Compliance = clamp(r.Compliance+(s.regionTarget(r.Code)-r.Compliance)*0.04-decay*0.10, 0, 100)
		r.Pressure = clamp((100-r.Compliance)/60+decay*0.8, 0, 1)

		if r.Compliance < complianceFloor {
			if r.FrozenSec < regionFreezeSec {
				r.FrozenSec = regionFreezeSec
			}
			switch r.Code {
			case RegionEU:
				s.openTicket(TicketComplianceEU, "EU compliance gap", CategoryPlatform, 2, 70, 5)
			case RegionUS:
				s.openTicket(TicketComplianceUS, "US compliance gap", CategoryPlatform, 2, 60, 4)
			case RegionUK:
				s.openTicket(TicketComplianceUK, "UK compliance gap", CategoryPlatform, 2, 65, 5)
			}
		}
		if r.FrozenSec > 0 {
			r.FrozenSec--
		}
		weighted += r.Share * (1 - r.Compliance/100)
	}

	s.regPressure = clamp(weighted*140+boolf(zeroDay, 12, 0), 0, 100)

	if s.regPressure > 70 && s.timeSec%storeRiskEvery == 0 && s.gen.Chance(0.20) {
		s.openTicket(TicketStoreRejection, "Store policy risk", CategoryPlatform, 2, 75, 5)
		s.logf(CategoryOther, "Policy enforcement risk increased")
		s.adjustRating(-0.06)
	}
	if s.regPressure > 55 {
		extra := (s.regPressure - 55) / 100
		s.perception.SupportLoad = clamp(s.perception.SupportLoad+extra*0.9, 0, 100)
		s.adjustRating(-extra * 0.012)
	}
	if s.regPressure > 78 && s.timeSec%auditEvery == 0 {
		if s.gen.Chance(0.25) {
			s.openTicket(TicketStoreRejection, "Audit request", CategoryPlatform, 2, 70, 5)
			s.logf(CategoryOther, "Audit request opened")
		}
		if s.gen.Chance(0.18) {
			fine := math.Round(s.gen.Range(1200, 3800))
			s.budget = math.Max(0, s.budget-fine)
			s.logf(CategoryOther, "Regulatory fine %.0f", fine)
			s.adjustRating(-0.08)
		}
	}
}

// compliance is the share-weighted market compliance in [0,1].
func (s *Simulator) compliance() float64 {
	total := 0.0
	for _, r := range s.regions {
		total += r.Share * r.Compliance / 100
	}
	return clamp(total, 0, 1)
}

// Platform returns the current device landscape.
func (s *Simulator) Platform() Platform { return s.platform }

// Regions returns a copy of every market in fixed order.
func (s *Simulator) Regions() []Region { return append([]Region(nil), s.regions...) }

// RegPressure returns the aggregate regulatory pressure in [0,100].
func (s *Simulator) RegPressure() float64 { return s.regPressure }

// Advisories returns a copy of every advisory published this run.
func (s *Simulator) Advisories() []Advisory {
	out := make([]Advisory, len(s.advisories))
	for i, a := range s.advisories {
		out[i] = *a
	}
	return out
}
