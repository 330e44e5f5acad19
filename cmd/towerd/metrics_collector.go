package main

import (
	"github.com/towerbft/consensus-core/metrics"
	"github.com/towerbft/consensus-core/tower"
)

// towerStateCollector exposes a handful of the Tower's live fields as
// Prometheus gauges read fresh on every scrape, rather than pushed into the
// registry on every vote the way TowerVotesRecorded/CommitmentLargestConfirmedRoot
// are.
type towerStateCollector struct {
	t *tower.Tower
}

// Collect implements metrics.CustomCollector.
func (c *towerStateCollector) Collect() []metrics.MetricLine {
	lines := make([]metrics.MetricLine, 0, 2)

	if root, ok := c.t.RootSlot(); ok {
		lines = append(lines, metrics.MetricLine{Name: "tower_root_slot", Value: float64(root)})
	}
	if lastVoted, ok := c.t.LastVotedSlot(); ok {
		lines = append(lines, metrics.MetricLine{Name: "tower_last_voted_slot", Value: float64(lastVoted)})
	}
	lines = append(lines, metrics.MetricLine{
		Name:  "tower_stray_restored_slots",
		Value: float64(len(c.t.StrayRestoredSlots)),
	})

	return lines
}
