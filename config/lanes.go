package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LaneEntry overrides one lane. HouseEdge and RTP are alternatives; RTP is
// given in percent.
type LaneEntry struct {
	MaxMultiplier *float64 `yaml:"maxMultiplier" json:"maxMultiplier,omitempty"`
	HouseEdge     *float64 `yaml:"houseEdge" json:"houseEdge,omitempty"`
	RTP           *float64 `yaml:"rtp" json:"rtp,omitempty"`
}

// LaneFile is the optional lanes.yaml document, also accepted as the JSON
// body of a live config update. Absent fields keep their current values.
//
//	targetDurationSeconds: 10
//	forceCrashPoint: 0
//	lanes:
//	  safe:   {maxMultiplier: 4, houseEdge: 0.05}
//	  medium: {maxMultiplier: 10, rtp: 96}
//	  wild:   {maxMultiplier: 50}
type LaneFile struct {
	TargetDurationSeconds *float64             `yaml:"targetDurationSeconds" json:"targetDurationSeconds,omitempty"`
	ForceCrashPoint       *float64             `yaml:"forceCrashPoint" json:"forceCrashPoint,omitempty"`
	Lanes                 map[string]LaneEntry `yaml:"lanes" json:"lanes,omitempty"`
}

// LoadLaneFile reads path. A missing file is not an error and yields nil.
func LoadLaneFile(path string) (*LaneFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lane file: %w", err)
	}
	return ParseLaneFile(data)
}

// ParseLaneFile decodes a lane document, rejecting unknown fields.
func ParseLaneFile(data []byte) (*LaneFile, error) {
	var f LaneFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse lane file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate rejects entries that give both a house edge and an RTP.
func (f *LaneFile) Validate() error {
	for key, entry := range f.Lanes {
		if entry.HouseEdge != nil && entry.RTP != nil {
			return fmt.Errorf("lane %q sets both houseEdge and rtp", key)
		}
	}
	return nil
}
