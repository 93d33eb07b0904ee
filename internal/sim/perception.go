package sim

import (
	"fmt"
	"math"

	"archops-sim/internal/catalog"
)

const (
	frameBudgetMs = 16.6
	framesPerTick = 60
	reviewKeep    = 6
	// ratingDrag is the share of felt penalties that reaches the store rating each second.
	ratingDrag = 0.25
)

// aggregate folds the router's tick observations into smoothed technical metrics.
func (s *Simulator) aggregate(st tickStats) {
	s.reqOK = s.reqOK*0.85 + float64(st.ok)*0.15
	s.reqFail = s.reqFail*0.85 + float64(st.fail)*0.15
	s.anrPoints = s.anrPoints*0.80 + st.anrPoints*0.20
	if len(st.latencies) > 0 {
		s.latSamples = append(s.latSamples, st.latencies...)
		if n := len(s.latSamples); n > latencyWindow {
			s.latSamples = append([]float64(nil), s.latSamples[n-latencyWindow:]...)
		}
	}
	s.traffic = clamp(float64(st.spawned), 0, 100)
	s.refreshRates()

	// Request work is spread over the frames rendered this tick.
	mainThread := s.mainThreadFloor() + st.mainThreadMs/framesPerTick
	s.tech.MainThreadMs = mainThread

	cacheTier := float64(s.tierOf(catalog.Cache))
	decay := 1.6 + cacheTier*0.6
	heap := s.tech.HeapMB + st.heapDelta + s.heapChurn() - decay
	s.tech.HeapMB = clamp(heap, 0, s.tech.HeapMaxMB*1.3)

	// A heap that outgrew its limit before the collector ran is an OOM.
	s.tech.GCPauseMs = 0
	switch ratio := s.tech.HeapMB / s.tech.HeapMaxMB; {
	case ratio > 1:
		s.tech.OOMCount++
		s.reqFail += 6
		s.adjustRating(-0.20)
		s.budget = math.Max(0, s.budget-25)
		s.tech.HeapMB = s.tech.HeapMaxMB * 0.55
		s.logf(CategoryOther, "OOM crash")
		s.refreshRates()
	case ratio > 0.78:
		s.tech.GCPauseMs = clamp((ratio-0.70)*140, 0, 80)
		s.tech.HeapMB *= 0.72
	}

	over := math.Max(0, mainThread+s.tech.GCPauseMs-frameBudgetMs)
	base := clamp(over/frameBudgetMs, 0, 3) * 100
	now := base * (1 + s.platform.Pressure*0.30) * (1 - s.patch.jank*0.35) * (1 + (s.coverage.riskMult-1)*0.25)
	s.tech.JankPct = s.tech.JankPct*0.85 + clamp(now, 0, 300)*0.15
}

func (s *Simulator) refreshRates() {
	total := s.reqOK + s.reqFail
	s.tech.FailureRate = 0
	if total > 0 {
		s.tech.FailureRate = s.reqFail / total
	}
	s.tech.ANRRisk = clamp(s.anrPoints/120, 0, 1)
	s.tech.P95Ms = percentile(s.latSamples, 0.95)
}

// mainThreadFloor is the baseline UI work before any request is handled.
func (s *Simulator) mainThreadFloor() float64 {
	n := float64(len(s.components))
	coverage := (s.coverage.riskMult - 1) * 6
	backlog := clamp(float64(len(s.tickets))/10, 0, 1) * 3
	latency := clamp((s.tech.P95Ms-140)/400, 0, 1) * 4
	return clamp(6+n*0.28+s.platform.Pressure*8+coverage+backlog+latency, 4, 42)
}

func (s *Simulator) heapChurn() float64 {
	n := float64(len(s.components))
	cacheRelief := float64(s.tierOf(catalog.Cache)) * 0.35
	ticketHeat := clamp(float64(len(s.tickets))/16, 0, 1) * 0.9
	return clamp(s.traffic*0.045+n*0.08+s.platform.LowRAMShare*2.2+ticketHeat-cacheRelief, 0, 12)
}

func (s *Simulator) stable() bool {
	t := s.tech
	return t.FailureRate < 0.05 && t.ANRRisk < 0.15 && t.P95Ms < 220
}

// updatePerception moves support load, rating and trust metrics.
func (s *Simulator) updatePerception() {
	t := s.tech
	p := &s.perception
	slow := clamp((t.P95Ms-120)/500, 0, 1)

	up := t.FailureRate*18 + t.ANRRisk*10 + slow*6
	down := 0.5
	if t.FailureRate < 0.05 && t.ANRRisk < 0.15 {
		down = 1.2
	}
	p.SupportLoad = clamp(p.SupportLoad+up-down, 0, 100)

	a11yPen := clamp((100-p.A11y)/100, 0, 1)
	privPen := clamp((100-p.Privacy)/100, 0, 1)
	secPen := clamp((100-p.Security)/100, 0, 1)
	supPen := clamp(p.SupportLoad/100, 0, 1)
	drop := t.FailureRate*0.35 + t.ANRRisk*0.25 + slow*0.18 + boolf(t.Battery < 20, 0.08, 0) +
		a11yPen*0.10 + privPen*0.12 + secPen*0.10 + supPen*0.06
	gain := 0.0
	if t.FailureRate < 0.03 && t.ANRRisk < 0.10 && t.P95Ms < 160 && p.A11y > 90 && p.Privacy > 90 && p.Security > 90 {
		gain = 0.012
	}
	s.adjustRating(gain - drop*ratingDrag)

	if s.stable() {
		a11yTier := s.tierOf(catalog.A11y)
		a11yBoost := 0.02
		if a11yTier > 0 {
			a11yBoost = 0.10 + 0.06*float64(a11yTier-1)
		}
		secBoost := boolf(s.has(catalog.Auth), 0.05, 0) + boolf(s.has(catalog.Pinning), 0.04, 0) + boolf(s.has(catalog.Keystore), 0.06, 0)
		p.A11y = clamp(p.A11y+a11yBoost, 0, 100)
		p.Security = clamp(p.Security+0.06+secBoost, 0, 100)
		p.Privacy = clamp(p.Privacy+0.05+boolf(s.has(catalog.Keystore), 0.05, 0), 0, 100)
	} else {
		p.A11y = clamp(p.A11y-slow*0.5, 0, 100)
		p.Security = clamp(p.Security-t.FailureRate*3.5, 0, 100)
		p.Privacy = clamp(p.Privacy-t.FailureRate*2.2, 0, 100)
	}

	s.maybeReviewWave()
	s.tech.Battery = clamp(s.tech.Battery+0.06, 0, 100)
}

func (s *Simulator) adjustRating(delta float64) {
	s.rating = clamp(s.rating+delta, MinRating, MaxRating)
}

type reviewTopic int

const (
	topicPerf reviewTopic = iota
	topicReliability
	topicPrivacy
	topicA11y
	topicBattery
)

var positiveReviews = []string{
	"Smooth and stable lately. Nice.",
	"Fast, reliable, no drama. Keep it up.",
	"Works great on my device. Finally.",
	"No crashes, no battery drain. Chef's kiss.",
}

// maybeReviewWave lands a burst of store reviews on the worst-felt category.
func (s *Simulator) maybeReviewWave() {
	if s.timeSec < s.nextReviewAt {
		return
	}
	s.nextReviewAt = s.timeSec + s.gen.Int(22, 37)

	t, p := s.tech, s.perception
	penalties := [...]float64{
		topicPerf:        clamp((t.P95Ms-160)/480, 0, 1) + t.ANRRisk*0.35,
		topicReliability: clamp(t.FailureRate*3.2+t.ANRRisk*0.45, 0, 1),
		topicPrivacy:     clamp((100-p.Privacy)/100, 0, 1),
		topicA11y:        clamp((100-p.A11y)/100, 0, 1),
		topicBattery:     clamp((100-t.Battery)/100, 0, 1),
	}
	top := topicPerf
	for i, v := range penalties {
		if v > penalties[top] {
			top = reviewTopic(i)
		}
	}
	val := penalties[top]

	if val < 0.12 {
		s.pushReview(positiveReviews[s.gen.Int(0, len(positiveReviews)-1)])
		s.adjustRating(0.03)
		return
	}

	sample := math.Round(30 + float64(s.timeSec)/30 + s.mods.spawnMul*15)
	votes := int(math.Max(1, math.Round(sample*val*0.6)))
	switch top {
	case topicPerf:
		s.votes.Perf += votes
	case topicReliability:
		s.votes.Reliability += votes
	case topicPrivacy:
		s.votes.Privacy += votes
	case topicA11y:
		s.votes.A11y += votes
	case topicBattery:
		s.votes.Battery += votes
	}
	s.adjustRating(-0.10 * val)
	s.pushReview(s.reviewSnippet(top, val))
}

func (s *Simulator) pushReview(r string) {
	s.reviews = append([]string{r}, s.reviews...)
	if len(s.reviews) > reviewKeep {
		s.reviews = s.reviews[:reviewKeep]
	}
}

func (s *Simulator) reviewSnippet(topic reviewTopic, sev float64) string {
	mood := "awful"
	switch {
	case sev < 0.35:
		mood = "meh"
	case sev < 0.70:
		mood = "bad"
	}
	t, p := s.tech, s.perception
	switch topic {
	case topicPerf:
		return fmt.Sprintf("%s: Feels laggy/janky. p95 ~%.0fms.", mood, t.P95Ms)
	case topicReliability:
		return fmt.Sprintf("%s: Crashes/ANRs after the update (%.1f%% failures, %.1f%% ANR risk).", mood, t.FailureRate*100, t.ANRRisk*100)
	case topicPrivacy:
		return fmt.Sprintf("%s: Privacy vibes are off. Trust=%.0f/100.", mood, p.Privacy)
	case topicA11y:
		return fmt.Sprintf("%s: Accessibility issues (labels/contrast/focus). A11y=%.0f/100.", mood, p.A11y)
	default:
		return fmt.Sprintf("%s: Battery drain is wild. Battery=%.0f/100.", mood, t.Battery)
	}
}
