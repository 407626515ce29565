package fax

import (
	"fmt"
	"math/rand"
)

// Negotiation phases and event tags. Fixed vocabulary; report consumers key
// off these strings.
const (
	PhaseB = "PHASE_B"
	PhaseC = "PHASE_C"
	PhaseD = "PHASE_D"

	EventDIS      = "DIS"
	EventTCF      = "TCF"
	EventCFR      = "CFR"
	EventFallback = "FALLBACK"
	EventStart    = "START"
	EventMCF      = "MCF"
)

// cfrThresholdDB is the minimum simulated training margin at which the
// receiver confirms a bitrate instead of falling back.
const cfrThresholdDB = -2.5

// NegotiationEvent is a single timestamped entry in a negotiation trace.
// Timestamps are seconds from session start and non-decreasing.
type NegotiationEvent struct {
	Timestamp float64 `json:"t"`
	Phase     string  `json:"phase"`
	Event     string  `json:"event"`
	Detail    string  `json:"detail"`
}

// SimulationResult is the outcome of one simulated negotiation.
// FinalBitrate is always either the profile's max bitrate or one of its
// fallback steps.
type SimulationResult struct {
	Profile       *Profile           `json:"-"`
	Events        []NegotiationEvent `json:"events"`
	FinalBitrate  int                `json:"finalBitrateBps"`
	FallbackSteps int                `json:"fallbackSteps"`
	Seed          int64              `json:"seed"`
}

// Simulation produces deterministic negotiation traces based on seeded
// randomness. Identical (profile, seed) pairs always yield byte-identical
// event details.
type Simulation struct {
	profile *Profile
	seed    int64
	rng     *rand.Rand

	// margin draws the training margin for a bitrate step. Defaults to
	// simulateMargin; tests swap it to steer the ladder walk.
	margin func(bitrate int) float64
}

// NewSimulation creates a simulation with its own generator seeded from
// seed. No process-global randomness is touched, so parallel simulations
// with different seeds never interfere.
func NewSimulation(profile *Profile, seed int64) *Simulation {
	return NewSimulationWithRand(profile, seed, rand.New(rand.NewSource(seed)))
}

// NewSimulationWithRand injects an explicit generator. Tests use this to
// pin the noise sequence.
func NewSimulationWithRand(profile *Profile, seed int64, rng *rand.Rand) *Simulation {
	s := &Simulation{profile: profile, seed: seed, rng: rng}
	s.margin = s.simulateMargin
	return s
}

// Run walks the profile's bitrate ladder and returns the negotiated
// outcome. It cannot fail: malformed profiles are rejected at load time.
func (s *Simulation) Run() *SimulationResult {
	events := []NegotiationEvent{
		{Timestamp: 0.0, Phase: PhaseB, Event: EventDIS, Detail: s.disDetail()},
	}

	finalBitrate := s.profile.MaxBitrate
	steps := 0
	timestamp := 0.420
	accepted := false

	for _, bitrate := range s.profile.BitrateSteps {
		timestamp += 0.100
		margin := s.margin(bitrate)
		events = append(events, NegotiationEvent{
			Timestamp: timestamp,
			Phase:     s.profile.Standard,
			Event:     EventTCF,
			Detail:    fmt.Sprintf("margin=%.2fdB @ %d", margin, bitrate),
		})
		if margin >= cfrThresholdDB {
			events = append(events, NegotiationEvent{
				Timestamp: timestamp + 0.5,
				Phase:     PhaseB,
				Event:     EventCFR,
				Detail:    "ok",
			})
			finalBitrate = bitrate
			accepted = true
			break
		}
		steps++
		events = append(events, NegotiationEvent{
			Timestamp: timestamp + 0.01,
			Phase:     s.profile.Standard,
			Event:     EventFallback,
			Detail:    fmt.Sprintf("%d→%d bps", bitrate, s.profile.nextStep(bitrate)),
		})
	}

	if !accepted {
		// Ladder exhausted: the lowest step is accepted unconditionally.
		finalBitrate = s.profile.BitrateSteps[len(s.profile.BitrateSteps)-1]
		events = append(events, NegotiationEvent{
			Timestamp: timestamp + 0.5,
			Phase:     PhaseB,
			Event:     EventCFR,
			Detail:    "forced accept",
		})
	}

	events = append(events,
		NegotiationEvent{
			Timestamp: timestamp + 1.0,
			Phase:     PhaseC,
			Event:     EventStart,
			Detail:    fmt.Sprintf("ecm=%dB", s.profile.ECMBlockBytes),
		},
		NegotiationEvent{
			Timestamp: timestamp + 3.0,
			Phase:     PhaseD,
			Event:     EventMCF,
			Detail:    "retransmits=0",
		},
	)

	return &SimulationResult{
		Profile:       s.profile,
		Events:        events,
		FinalBitrate:  finalBitrate,
		FallbackSteps: steps,
		Seed:          s.seed,
	}
}

func (s *Simulation) disDetail() string {
	ecm := "OFF"
	if s.profile.ECMEnabled {
		ecm = "ON"
	}
	return fmt.Sprintf("STD:%s, ECM:%s, MAX:%dbps", s.profile.Standard, ecm, s.profile.MaxBitrate)
}

// simulateMargin draws the training margin for one bitrate step. The base
// margin shrinks as the bitrate approaches the profile's top step, so high
// rates are the ones that fall back; uniform noise in [-2,2) dB supplies
// the per-seed variation.
func (s *Simulation) simulateMargin(bitrate int) float64 {
	top := s.profile.BitrateSteps[0]
	base := 3.0 - (float64(bitrate)/float64(top))*3.0
	noise := s.rng.Float64()*4.0 - 2.0
	return base + noise
}
