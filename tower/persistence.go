package tower

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/towerbft/consensus-core/metrics"
	"github.com/towerbft/consensus-core/signerstore"
	"github.com/towerbft/consensus-core/types"
	"github.com/towerbft/consensus-core/votestate"
)

const signatureLength = 64

// path returns the tower file's final resting path within LedgerDir.
func (t *Tower) path() string {
	return filepath.Join(t.LedgerDir, fmt.Sprintf("tower-%s.bin", t.NodePubkey.String()))
}

func (t *Tower) tmpPath() string {
	return t.path() + ".new"
}

// encode serializes the Tower's persistent fields -- node_pubkey,
// threshold_depth, threshold_size, vote_state, last_vote, last_timestamp --
// with explicit length-prefixed binary encoding. A generic reflective codec
// (gob/json) would not guarantee the same byte-stable layout across Go
// versions, so the layout is written out field by field instead.
func (t *Tower) encode() []byte {
	var buf bytes.Buffer

	buf.Write(t.NodePubkey.Bytes())
	binary.Write(&buf, binary.BigEndian, t.ThresholdDepth)
	binary.Write(&buf, binary.BigEndian, t.ThresholdSize)

	encodeVoteState(&buf, t.VoteState)

	if t.hasLastVote {
		buf.WriteByte(1)
		binary.Write(&buf, binary.BigEndian, uint64(t.lastVote.Slot))
		binary.Write(&buf, binary.BigEndian, t.lastVote.ConfirmationCount)
	} else {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

func encodeVoteState(buf *bytes.Buffer, vs *votestate.VoteState) {
	buf.Write(vs.NodePubkey.Bytes())

	binary.Write(buf, binary.BigEndian, uint32(len(vs.Votes)))
	for _, l := range vs.Votes {
		binary.Write(buf, binary.BigEndian, uint64(l.Slot))
		binary.Write(buf, binary.BigEndian, l.ConfirmationCount)
	}

	if vs.RootSlot != nil {
		buf.WriteByte(1)
		binary.Write(buf, binary.BigEndian, uint64(*vs.RootSlot))
	} else {
		buf.WriteByte(0)
	}

	binary.Write(buf, binary.BigEndian, uint64(vs.LastTimestamp.Slot))
	binary.Write(buf, binary.BigEndian, vs.LastTimestamp.UnixTimestamp)
}

func decodeVoteState(r *bytes.Reader) (*votestate.VoteState, error) {
	var pubkeyBytes [types.PubkeyLength]byte
	if _, err := r.Read(pubkeyBytes[:]); err != nil {
		return nil, fmt.Errorf("%w: vote_state node_pubkey: %v", ErrSerialization, err)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: vote count: %v", ErrSerialization, err)
	}
	votes := make([]votestate.Lockout, count)
	for i := range votes {
		var slot uint64
		var conf uint32
		if err := binary.Read(r, binary.BigEndian, &slot); err != nil {
			return nil, fmt.Errorf("%w: vote[%d].slot: %v", ErrSerialization, i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &conf); err != nil {
			return nil, fmt.Errorf("%w: vote[%d].confirmation_count: %v", ErrSerialization, i, err)
		}
		votes[i] = votestate.Lockout{Slot: types.Slot(slot), ConfirmationCount: conf}
	}

	hasRoot, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: root presence flag: %v", ErrSerialization, err)
	}
	var rootSlot *types.Slot
	if hasRoot == 1 {
		var slot uint64
		if err := binary.Read(r, binary.BigEndian, &slot); err != nil {
			return nil, fmt.Errorf("%w: root_slot: %v", ErrSerialization, err)
		}
		root := types.Slot(slot)
		rootSlot = &root
	}

	var tsSlot uint64
	var tsUnix int64
	if err := binary.Read(r, binary.BigEndian, &tsSlot); err != nil {
		return nil, fmt.Errorf("%w: last_timestamp.slot: %v", ErrSerialization, err)
	}
	if err := binary.Read(r, binary.BigEndian, &tsUnix); err != nil {
		return nil, fmt.Errorf("%w: last_timestamp.unix_timestamp: %v", ErrSerialization, err)
	}

	return &votestate.VoteState{
		NodePubkey:    types.BytesToPubkey(pubkeyBytes[:]),
		Votes:         votes,
		RootSlot:      rootSlot,
		LastTimestamp: votestate.BlockTimestamp{Slot: types.Slot(tsSlot), UnixTimestamp: tsUnix},
	}, nil
}

// Save serializes the Tower, signs it, and atomically writes it to path().
// The parent directory is not fsynced -- this is deliberately best-effort
// for durability but still crash-atomic thanks to the rename.
func (t *Tower) Save() error {
	timer := metrics.NewTimer(metrics.TowerSaveDuration)
	defer timer.Stop()

	data := t.encode()
	sig := t.signer.Sign(data)
	if len(sig) != signatureLength {
		return fmt.Errorf("%w: signer produced a %d-byte signature, want %d",
			ErrSerialization, len(sig), signatureLength)
	}

	var file bytes.Buffer
	file.Write(sig)
	binary.Write(&file, binary.BigEndian, uint64(len(data)))
	file.Write(data)

	if err := os.MkdirAll(t.LedgerDir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrIO, t.LedgerDir, err)
	}

	tmp := t.tmpPath()
	if err := os.WriteFile(tmp, file.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, tmp, err)
	}
	if err := os.Rename(tmp, t.path()); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %v", ErrIO, tmp, t.path(), err)
	}

	return nil
}

// Restore reads and verifies a persisted tower file, checking the signature
// against nodePubkey and the inner identity against the same. signer is
// attached to the returned Tower so it can continue to Save() after restore.
// Any failure is logged at Error before being returned to the caller.
func Restore(path string, nodePubkey types.Pubkey, signer *signerstore.Store) (t *Tower, err error) {
	defer func() {
		if err != nil {
			metrics.TowerRestoreFailures.Inc()
			logger.Error("tower restore failed", "path", path, "error", err)
		}
	}()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}

	if len(raw) < signatureLength+8 {
		return nil, fmt.Errorf("%w: file too short (%d bytes)", ErrSerialization, len(raw))
	}

	sig := raw[:signatureLength]
	lengthBytes := raw[signatureLength : signatureLength+8]
	dataLen := binary.BigEndian.Uint64(lengthBytes)
	data := raw[signatureLength+8:]
	if uint64(len(data)) != dataLen {
		return nil, fmt.Errorf("%w: declared length %d, got %d bytes", ErrSerialization, dataLen, len(data))
	}

	if !signerstore.Verify(nodePubkey, data, sig) {
		return nil, fmt.Errorf("%w: tower file at %s", ErrInvalidSignature, path)
	}

	r := bytes.NewReader(data)

	var pubkeyBytes [types.PubkeyLength]byte
	if _, err := r.Read(pubkeyBytes[:]); err != nil {
		return nil, fmt.Errorf("%w: node_pubkey: %v", ErrSerialization, err)
	}
	innerPubkey := types.BytesToPubkey(pubkeyBytes[:])
	if innerPubkey != nodePubkey {
		return nil, fmt.Errorf("%w: tower belongs to %s, expected %s", ErrWrongTower, innerPubkey, nodePubkey)
	}

	var thresholdDepth uint64
	var thresholdSize float64
	if err := binary.Read(r, binary.BigEndian, &thresholdDepth); err != nil {
		return nil, fmt.Errorf("%w: threshold_depth: %v", ErrSerialization, err)
	}
	if err := binary.Read(r, binary.BigEndian, &thresholdSize); err != nil {
		return nil, fmt.Errorf("%w: threshold_size: %v", ErrSerialization, err)
	}

	voteState, err := decodeVoteState(r)
	if err != nil {
		return nil, err
	}

	hasLastVote, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: last_vote presence flag: %v", ErrSerialization, err)
	}

	restored := &Tower{
		NodePubkey:         innerPubkey,
		ThresholdDepth:     thresholdDepth,
		ThresholdSize:      thresholdSize,
		VoteState:          voteState,
		LedgerDir:          filepath.Dir(path),
		StrayRestoredSlots: make(map[types.Slot]struct{}),
		signer:             signer,
	}

	if hasLastVote == 1 {
		var slot uint64
		var conf uint32
		if err := binary.Read(r, binary.BigEndian, &slot); err != nil {
			return nil, fmt.Errorf("%w: last_vote.slot: %v", ErrSerialization, err)
		}
		if err := binary.Read(r, binary.BigEndian, &conf); err != nil {
			return nil, fmt.Errorf("%w: last_vote.confirmation_count: %v", ErrSerialization, err)
		}
		restored.lastVote = votestate.Lockout{Slot: types.Slot(slot), ConfirmationCount: conf}
		restored.hasLastVote = true
	}

	return restored, nil
}
