package metrics

// Pre-defined metrics for the consensus core. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Tower metrics ----

	// TowerSaveDuration records how long persisting the tower to disk takes,
	// in milliseconds.
	TowerSaveDuration = DefaultRegistry.Histogram("tower_save_duration_ms")
	// TowerVotesRecorded counts votes successfully applied to the local
	// VoteState via Tower.RecordBankVote.
	TowerVotesRecorded = DefaultRegistry.Counter("tower_votes_recorded")
	// TowerSwitchForkDecisions counts how many times CheckSwitchThreshold was
	// evaluated, regardless of outcome.
	TowerSwitchForkDecisions = DefaultRegistry.Counter("tower_switch_fork_decisions")
	// TowerRestoreFailures counts failed attempts to restore a persisted
	// tower from disk.
	TowerRestoreFailures = DefaultRegistry.Counter("tower_restore_failures")

	// ---- Commitment metrics ----

	// CommitmentAggregateDuration records how long one aggregation cycle in
	// AggregateCommitmentService takes, in milliseconds.
	CommitmentAggregateDuration = DefaultRegistry.Histogram("commitment_aggregate_duration_ms")
	// CommitmentLargestConfirmedRoot tracks the most recent largest
	// confirmed root slot.
	CommitmentLargestConfirmedRoot = DefaultRegistry.Gauge("commitment_largest_confirmed_root")
	// VoteAccountsSkipped counts vote accounts skipped during aggregation
	// because their stored vote state could not be deserialized.
	VoteAccountsSkipped = DefaultRegistry.Counter("vote_accounts_skipped")
	// CommitmentCacheUpdates counts how many times the BlockCommitmentCache
	// snapshot was swapped.
	CommitmentCacheUpdates = DefaultRegistry.Counter("commitment_cache_updates")
)
