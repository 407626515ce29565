package fax

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile(steps ...int) *Profile {
	if len(steps) == 0 {
		steps = []int{33600, 31200, 28800, 26400, 24000}
	}
	return &Profile{
		Name:           "V34_33k6_ECM256",
		Standard:       "V34",
		MaxBitrate:     steps[0],
		BitrateSteps:   steps,
		ECMEnabled:     true,
		ECMBlockBytes:  256,
		FallbackPolicy: "graceful",
		ConfigSHA256:   "deadbeef",
	}
}

func eventDetails(result *SimulationResult) []string {
	details := make([]string, len(result.Events))
	for i, event := range result.Events {
		details[i] = event.Detail
	}
	return details
}

func TestSimulationDeterminism(t *testing.T) {
	profile := testProfile()

	first := NewSimulation(profile, 42).Run()
	second := NewSimulation(profile, 42).Run()

	assert.Equal(t, first.FinalBitrate, second.FinalBitrate)
	assert.Equal(t, first.FallbackSteps, second.FallbackSteps)
	assert.Equal(t, eventDetails(first), eventDetails(second))
}

func TestSimulationSeedSensitivity(t *testing.T) {
	profile := testProfile()

	first := NewSimulation(profile, 1).Run()
	second := NewSimulation(profile, 2).Run()

	assert.NotEqual(t, eventDetails(first), eventDetails(second),
		"different seeds should produce different margin traces")
}

func TestSimulationTraceShape(t *testing.T) {
	profile := testProfile()
	result := NewSimulation(profile, 1234).Run()

	require.NotEmpty(t, result.Events)

	first := result.Events[0]
	assert.Equal(t, 0.0, first.Timestamp)
	assert.Equal(t, PhaseB, first.Phase)
	assert.Equal(t, EventDIS, first.Event)
	assert.Equal(t, "STD:V34, ECM:ON, MAX:33600bps", first.Detail)

	last := result.Events[len(result.Events)-1]
	assert.Equal(t, EventMCF, last.Event)
	assert.Equal(t, PhaseD, last.Phase)
	assert.Equal(t, "retransmits=0", last.Detail)

	assert.Contains(t, profile.BitrateSteps, result.FinalBitrate)
	assert.GreaterOrEqual(t, result.FallbackSteps, 0)
	assert.Equal(t, int64(1234), result.Seed)
}

func TestSimulationTimestampsNonDecreasing(t *testing.T) {
	result := NewSimulation(testProfile(), 7).Run()
	prev := -1.0
	for _, event := range result.Events {
		assert.GreaterOrEqual(t, event.Timestamp, prev, "event %s out of order", event.Event)
		prev = event.Timestamp
	}
}

func TestSimulationFallbackWalk(t *testing.T) {
	// Pin margins so the first two steps fail training and the third is
	// confirmed, then check the fallback bookkeeping.
	profile := testProfile()
	sim := NewSimulation(profile, 99)
	sim.margin = func(bitrate int) float64 {
		if bitrate > 28800 {
			return -3.0
		}
		return 1.0
	}
	result := sim.Run()

	assert.Equal(t, 28800, result.FinalBitrate)
	assert.Equal(t, 2, result.FallbackSteps)

	var fallbacks []string
	for _, event := range result.Events {
		if event.Event == EventFallback {
			fallbacks = append(fallbacks, event.Detail)
		}
	}
	assert.Equal(t, []string{"33600→31200 bps", "31200→28800 bps"}, fallbacks)
}

func TestSimulationSingleStepProfile(t *testing.T) {
	profile := testProfile(14400)

	for seed := int64(0); seed < 50; seed++ {
		result := NewSimulation(profile, seed).Run()
		assert.Equal(t, 14400, result.FinalBitrate, "seed %d", seed)
		assert.LessOrEqual(t, result.FallbackSteps, 1, "seed %d", seed)
	}
}

func TestSimulationForcedAccept(t *testing.T) {
	// When every step fails training the lowest step is accepted
	// unconditionally.
	profile := testProfile()
	sim := NewSimulation(profile, 5)
	sim.margin = func(int) float64 { return -10.0 }
	result := sim.Run()

	assert.Equal(t, 24000, result.FinalBitrate)
	assert.Equal(t, len(profile.BitrateSteps), result.FallbackSteps)

	var cfrDetail string
	for _, event := range result.Events {
		if event.Event == EventCFR {
			cfrDetail = event.Detail
		}
	}
	assert.Equal(t, "forced accept", cfrDetail)

	last := result.Events[len(result.Events)-1]
	assert.Equal(t, EventMCF, last.Event)
}

func TestParseProfile(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		payload := []byte(`{
			"name": "V34_33k6_ECM256",
			"standard": "V34",
			"maxBitrateBps": 33600,
			"bitrateStepsBps": [33600, 31200, 28800, 26400, 24000],
			"ecm": {"enabled": true, "blockBytes": 256},
			"fallbackPolicy": "graceful"
		}`)
		profile, err := ParseProfile(payload, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "V34_33k6_ECM256", profile.Name)
		assert.Equal(t, 33600, profile.MaxBitrate)
		assert.Equal(t, []int{33600, 31200, 28800, 26400, 24000}, profile.BitrateSteps)
		assert.True(t, profile.ECMEnabled)
		assert.Equal(t, 256, profile.ECMBlockBytes)
		assert.Equal(t, "graceful", profile.FallbackPolicy)
		assert.Equal(t, "abc123", profile.ConfigSHA256)
	})

	t.Run("defaults fill in omitted fields", func(t *testing.T) {
		profile, err := ParseProfile([]byte(`{"name": "minimal", "standard": "V17"}`), "h")
		require.NoError(t, err)
		assert.Equal(t, 33600, profile.MaxBitrate)
		assert.Equal(t, []int{33600, 31200, 28800, 26400, 24000}, profile.BitrateSteps)
		assert.True(t, profile.ECMEnabled)
		assert.Equal(t, "graceful", profile.FallbackPolicy)
	})

	t.Run("ecm can be disabled", func(t *testing.T) {
		profile, err := ParseProfile([]byte(`{"name": "n", "standard": "V29", "ecm": {"enabled": false}}`), "h")
		require.NoError(t, err)
		assert.False(t, profile.ECMEnabled)
	})

	for name, payload := range map[string]string{
		"missing name":     `{"standard": "V34"}`,
		"empty steps":      `{"name": "n", "standard": "V34", "bitrateStepsBps": []}`,
		"ascending steps":  `{"name": "n", "standard": "V34", "bitrateStepsBps": [24000, 33600]}`,
		"negative step":    `{"name": "n", "standard": "V34", "bitrateStepsBps": [-1]}`,
		"zero max bitrate": `{"name": "n", "standard": "V34", "maxBitrateBps": 0}`,
		"not json":         `nope`,
	} {
		t.Run(fmt.Sprintf("rejects %s", name), func(t *testing.T) {
			_, err := ParseProfile([]byte(payload), "h")
			assert.Error(t, err)
		})
	}
}

func TestNextStep(t *testing.T) {
	profile := testProfile(33600, 28800, 24000)
	assert.Equal(t, 28800, profile.nextStep(33600))
	assert.Equal(t, 24000, profile.nextStep(28800))
	assert.Equal(t, 24000, profile.nextStep(24000), "bottom of ladder stays put")
	assert.Equal(t, 9600, profile.nextStep(9600), "unknown bitrate stays put")
}
