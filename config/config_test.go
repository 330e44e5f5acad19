package config

import "testing"

func TestDefaultTowerConfigValidates(t *testing.T) {
	if err := DefaultTowerConfig().Validate(); err != nil {
		t.Fatalf("DefaultTowerConfig().Validate() = %v, want nil", err)
	}
}

func TestTowerConfigValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*TowerConfig)
	}{
		{"zero threshold depth", func(c *TowerConfig) { c.ThresholdDepth = 0 }},
		{"threshold size too low", func(c *TowerConfig) { c.ThresholdSize = 0 }},
		{"threshold size too high", func(c *TowerConfig) { c.ThresholdSize = 1 }},
		{"switch threshold too high", func(c *TowerConfig) { c.SwitchForkThreshold = 1.5 }},
		{"empty ledger dir", func(c *TowerConfig) { c.LedgerDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultTowerConfig()
			tt.mod(c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestDefaultCommitmentServiceConfigValidates(t *testing.T) {
	if err := DefaultCommitmentServiceConfig().Validate(); err != nil {
		t.Fatalf("DefaultCommitmentServiceConfig().Validate() = %v, want nil", err)
	}
}

func TestCommitmentServiceConfigValidateRejectsZeroTimeout(t *testing.T) {
	c := DefaultCommitmentServiceConfig()
	c.RecvTimeout = 0
	if err := c.Validate(); err == nil {
		t.Error("Validate() = nil, want error for zero RecvTimeout")
	}
}
