// Package fax models simulated fax transmission: capability profiles and a
// deterministic T.30-style negotiation simulator. The simulator produces
// plausible negotiation traces for QA bookkeeping; it never talks to a modem.
package fax

import (
	"encoding/json"

	"github.com/qafax/qafax/errors"
)

// Profile describes a simulated fax modem's negotiable capabilities.
// Immutable once parsed; created at configuration-load time.
type Profile struct {
	Name           string
	Standard       string
	MaxBitrate     int
	BitrateSteps   []int // descending
	ECMEnabled     bool
	ECMBlockBytes  int
	FallbackPolicy string
	ConfigSHA256   string
}

// profilePayload is the JSON shape of profiles/<name>.json.
type profilePayload struct {
	Name            string `json:"name"`
	Standard        string `json:"standard"`
	MaxBitrateBps   *int   `json:"maxBitrateBps"`
	BitrateStepsBps []int  `json:"bitrateStepsBps"`
	ECM             struct {
		Enabled    *bool `json:"enabled"`
		BlockBytes *int  `json:"blockBytes"`
	} `json:"ecm"`
	FallbackPolicy string `json:"fallbackPolicy"`
}

// ParseProfile builds a Profile from a raw JSON config document and the
// content hash computed by the config loader.
func ParseProfile(payload json.RawMessage, sha256 string) (*Profile, error) {
	var p profilePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err.Error())
	}

	profile := &Profile{
		Name:           p.Name,
		Standard:       p.Standard,
		MaxBitrate:     33600,
		BitrateSteps:   []int{33600, 31200, 28800, 26400, 24000},
		ECMEnabled:     true,
		ECMBlockBytes:  256,
		FallbackPolicy: "graceful",
		ConfigSHA256:   sha256,
	}
	if p.MaxBitrateBps != nil {
		profile.MaxBitrate = *p.MaxBitrateBps
	}
	if p.BitrateStepsBps != nil {
		profile.BitrateSteps = p.BitrateStepsBps
	}
	if p.ECM.Enabled != nil {
		profile.ECMEnabled = *p.ECM.Enabled
	}
	if p.ECM.BlockBytes != nil {
		profile.ECMBlockBytes = *p.ECM.BlockBytes
	}
	if p.FallbackPolicy != "" {
		profile.FallbackPolicy = p.FallbackPolicy
	}

	if err := profile.validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// validate rejects malformed profiles at load time; the simulator assumes a
// well-formed Profile and cannot fail.
func (p *Profile) validate() error {
	if p.Name == "" {
		return errors.NewInvalidConfigError("profile is missing a name")
	}
	if p.MaxBitrate <= 0 {
		return errors.NewInvalidConfigError("profile %s: maxBitrateBps must be positive", p.Name)
	}
	if len(p.BitrateSteps) == 0 {
		return errors.NewInvalidConfigError("profile %s: bitrateStepsBps must not be empty", p.Name)
	}
	prev := 0
	for i, step := range p.BitrateSteps {
		if step <= 0 {
			return errors.NewInvalidConfigError("profile %s: bitrate step %d must be positive", p.Name, step)
		}
		if i > 0 && step >= prev {
			return errors.NewInvalidConfigError("profile %s: bitrateStepsBps must be strictly descending", p.Name)
		}
		prev = step
	}
	return nil
}

// nextStep returns the bitrate step below the given one, or the same value
// when already at the bottom of the ladder.
func (p *Profile) nextStep(bitrate int) int {
	for i, step := range p.BitrateSteps {
		if step == bitrate && i+1 < len(p.BitrateSteps) {
			return p.BitrateSteps[i+1]
		}
	}
	return bitrate
}
