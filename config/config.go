// Package config holds typed, validated configuration for the tower and
// commitment-aggregation subsystems.
package config

import (
	"fmt"
	"time"
)

// TowerConfig holds the thresholds and persistence path the Tower applies.
type TowerConfig struct {
	ThresholdDepth      uint64  // VOTE_THRESHOLD_DEPTH
	ThresholdSize       float64 // VOTE_THRESHOLD_SIZE, a super-majority fraction
	SwitchForkThreshold float64 // SWITCH_FORK_THRESHOLD
	LedgerDir           string  // directory holding tower-{pubkey}.bin
}

// DefaultTowerConfig returns the spec's bit-stable constants.
func DefaultTowerConfig() *TowerConfig {
	return &TowerConfig{
		ThresholdDepth:      8,
		ThresholdSize:       2.0 / 3.0,
		SwitchForkThreshold: 0.38,
		LedgerDir:           "ledger",
	}
}

// Validate checks config constraints and returns an error if invalid.
func (c *TowerConfig) Validate() error {
	if c.ThresholdDepth == 0 {
		return fmt.Errorf("config: ThresholdDepth must be > 0")
	}
	if c.ThresholdSize <= 0 || c.ThresholdSize >= 1 {
		return fmt.Errorf("config: ThresholdSize must be in (0, 1)")
	}
	if c.SwitchForkThreshold <= 0 || c.SwitchForkThreshold >= 1 {
		return fmt.Errorf("config: SwitchForkThreshold must be in (0, 1)")
	}
	if c.LedgerDir == "" {
		return fmt.Errorf("config: LedgerDir must not be empty")
	}
	return nil
}

// CommitmentServiceConfig governs the AggregateCommitmentService loop.
type CommitmentServiceConfig struct {
	RecvTimeout time.Duration // bounded wait per loop iteration
	BufferSize  int           // update channel buffer size
}

// DefaultCommitmentServiceConfig returns the spec's defaults.
func DefaultCommitmentServiceConfig() *CommitmentServiceConfig {
	return &CommitmentServiceConfig{
		RecvTimeout: time.Second,
		BufferSize:  8,
	}
}

// Validate checks config constraints and returns an error if invalid.
func (c *CommitmentServiceConfig) Validate() error {
	if c.RecvTimeout <= 0 {
		return fmt.Errorf("config: RecvTimeout must be > 0")
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("config: BufferSize must be >= 0")
	}
	return nil
}
