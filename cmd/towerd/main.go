// Command towerd wires the tower and commitment packages into a runnable
// process. It does not gossip, execute transactions, or store ledger
// shreds -- those remain out of scope for this module -- but it drives a
// synthetic, single-fork replay loop so the core's control flow (collect
// lockouts, check thresholds, record a vote, aggregate commitment) runs
// end to end.
//
// Usage:
//
//	towerd [flags]
//
// Flags:
//
//	--ledger          Tower persistence directory (default: ledger)
//	--threshold-depth Vote stack depth for stake-threshold checks (default: 8)
//	--threshold-size  Super-majority stake fraction (default: 2/3)
//	--slots           Number of synthetic slots to replay (default: 64)
//	--verbosity       Log level 0-4 (default: 3)
//	--metrics-addr    Address to serve Prometheus metrics on (default: disabled)
//	--version         Print version and exit
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/towerbft/consensus-core/blockstore"
	"github.com/towerbft/consensus-core/commitment"
	"github.com/towerbft/consensus-core/config"
	towerlog "github.com/towerbft/consensus-core/log"
	"github.com/towerbft/consensus-core/metrics"
	"github.com/towerbft/consensus-core/signerstore"
	"github.com/towerbft/consensus-core/tower"
	"github.com/towerbft/consensus-core/types"
)

var version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	towerlog.SetDefault(towerlog.New(towerlog.VerbosityToLevel(cfg.Verbosity)))
	logger := towerlog.Default().Module("towerd")
	logger.Info("towerd starting", "version", version, "ledger", cfg.LedgerDir, "slots", cfg.Slots)

	towerCfg := &config.TowerConfig{
		ThresholdDepth:      cfg.ThresholdDepth,
		ThresholdSize:       cfg.ThresholdSize,
		SwitchForkThreshold: tower.SwitchForkThreshold,
		LedgerDir:           cfg.LedgerDir,
	}
	if err := towerCfg.Validate(); err != nil {
		logger.Error("invalid tower configuration", "error", err)
		return 1
	}

	signer, err := signerstore.Generate()
	if err != nil {
		logger.Error("failed to generate validator identity", "error", err)
		return 1
	}

	t := tower.New(signer.Pubkey(), towerCfg, signer)

	bs, err := blockstore.Open(cfg.LedgerDir + "/blockstore")
	if err != nil {
		logger.Error("failed to open blockstore", "error", err)
		return 1
	}
	defer bs.Close()

	if err := t.ReconcileBlockstoreRootsWithTower(bs); err != nil {
		logger.Error("failed to reconcile blockstore roots with tower", "error", err)
		return 1
	}

	commitmentCfg := config.DefaultCommitmentServiceConfig()
	cache := commitment.NewCache()
	svc := commitment.NewAggregateCommitmentService(cache, commitmentCfg)

	if cfg.MetricsAddr != "" {
		startMetricsServer(logger, cfg.MetricsAddr, t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	serviceDone := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(serviceDone)
	}()

	driveReplayLoop(ctx, logger, t, bs, cache, svc, cfg.Slots)

	cancel()
	<-serviceDone

	logger.Info("towerd shutdown complete")
	return 0
}

// startMetricsServer serves metrics.DefaultRegistry in Prometheus text
// format, augmented with a live snapshot of t's state, on a background
// goroutine. It never blocks startup: a failure to bind is logged, not
// fatal, since the replay loop itself doesn't depend on the exporter.
func startMetricsServer(logger *towerlog.Logger, addr string, t *tower.Tower) {
	exporter := metrics.NewPrometheusExporter(metrics.DefaultRegistry, metrics.DefaultPrometheusConfig())
	exporter.RegisterCollector("tower_state", &towerStateCollector{t: t})

	server := &http.Server{Addr: addr, Handler: exporter.Handler()}
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}

// driveReplayLoop replays cfg.Slots synthetic slots against a fixed peer
// roster: each slot it collects lockouts, evaluates the vote-stake
// threshold, records a vote if it passes, and enqueues the bank for
// commitment aggregation.
func driveReplayLoop(ctx context.Context, logger *towerlog.Logger, t *tower.Tower, bs *blockstore.Store, cache *commitment.Cache, svc *commitment.AggregateCommitmentService, slots uint64) {
	const peerCount = 5
	const stakePerPeer = types.Stake(20)
	totalStake := types.Stake(peerCount) * stakePerPeer

	for slot := types.Slot(0); slot < types.Slot(slots); slot++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		peers := syntheticPeerVoters(slot, stakePerPeer, peerCount)
		bank := newSyntheticBank(slot, peers, totalStake)

		cbs := tower.CollectVoteLockouts(slot, peers, bank.Ancestors())

		if !t.CheckVoteStakeThreshold(slot, cbs.VotedStakes, cbs.TotalStake) {
			logger.Debug("vote-stake threshold failed, not voting this slot", "slot", slot)
			continue
		}

		root, err := t.RecordBankVote(slot)
		if err != nil {
			logger.Error("failed to record vote", "slot", slot, "error", err)
			continue
		}
		if root != nil {
			logger.Info("root advanced", "slot", slot, "root", *root)
			if err := bs.SetRoots([]types.Slot{*root}); err != nil {
				logger.Error("failed to persist root to blockstore", "root", *root, "error", err)
			}
		}

		towerRoot, _ := t.RootSlot()
		svc.Enqueue(commitment.CommitmentAggregationData{
			Bank:        bank,
			Root:        towerRoot,
			TotalStaked: totalStake,
		})
	}

	snapshot := cache.Load()
	fmt.Fprintf(os.Stdout, "replay complete: largest_confirmed_root=%d total_stake=%d\n",
		snapshot.LargestConfirmedRoot(), snapshot.TotalStake())
	logger.Info("replay loop complete", "largest_confirmed_root", snapshot.LargestConfirmedRoot())
}
