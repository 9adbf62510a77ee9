package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"sort"

	"github.com/aurum-chain/aurum/internal/chainerr"
)

// ElectProposer chooses the block producer for the height following
// parentHeaderHash among the active validators, using a stake-weighted
// random draw seeded deterministically from that hash (spec.md section
// 4.2, and the design-note correction in section 9: the source's
// per-call, non-deterministic PRNG would let nodes disagree about who
// was supposed to propose; seeding from the parent hash makes every
// honest node compute the same answer before the block even exists).
//
// validators is sorted by address before the draw so that iteration
// order — which Go intentionally randomizes for maps — can never affect
// the outcome.
func ElectProposer(validators map[string]*Validator, parentHeaderHash string) (string, error) {
	active := activeSorted(validators)
	if len(active) == 0 {
		return "", chainerr.New(chainerr.UnknownProposer, "no active validators")
	}

	var totalStake uint64
	for _, v := range active {
		totalStake += v.Stake
	}
	if totalStake == 0 {
		return "", chainerr.New(chainerr.UnknownProposer, "active validator set has zero total stake")
	}

	rng := rand.New(rand.NewSource(seedFromHash(parentHeaderHash)))
	point := uint64(rng.Int63n(int64(totalStake)))

	var cumulative uint64
	for _, v := range active {
		cumulative += v.Stake
		if point < cumulative {
			return v.Address, nil
		}
	}
	// Unreachable: cumulative == totalStake > point by construction.
	return active[len(active)-1].Address, nil
}

func activeSorted(validators map[string]*Validator) []*Validator {
	active := make([]*Validator, 0, len(validators))
	for _, v := range validators {
		if v.Active {
			active = append(active, v)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Address < active[j].Address })
	return active
}

// seedFromHash turns a hex block-header hash into a PRNG seed. Every
// honest node computes the same seed from the same parent hash, which is
// exactly the determinism spec.md section 4.2 and 9 require.
func seedFromHash(headerHash string) int64 {
	b, err := hex.DecodeString(headerHash)
	if err != nil || len(b) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b[:8]))
}
