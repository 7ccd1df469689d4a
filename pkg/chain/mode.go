// Copyright 2025 Certen Protocol

package chain

// ProofMode selects how the Gossip Handler builds the witness extrinsic
// once quorum is reached (spec §4.4 step 5, §6 Configuration). The two
// modes are mutually exclusive and fixed for the process lifetime.
type ProofMode int

const (
	// ProofModeOffChain builds the extrinsic with no proof map attached;
	// the runtime trusts the import guard to have verified quorum.
	ProofModeOffChain ProofMode = iota

	// ProofModeOnChain embeds the full proof map in the extrinsic; the
	// runtime re-verifies at execution time, making the Block-Import
	// Guard redundant (and safely disable-able) in this mode.
	ProofModeOnChain
)

func (m ProofMode) String() string {
	switch m {
	case ProofModeOffChain:
		return "off-chain-proofs"
	case ProofModeOnChain:
		return "on-chain-proofs"
	default:
		return "unknown"
	}
}

// ParseProofMode parses the pkg/config string representation.
func ParseProofMode(s string) (ProofMode, bool) {
	switch s {
	case "off-chain-proofs", "":
		return ProofModeOffChain, true
	case "on-chain-proofs":
		return ProofModeOnChain, true
	default:
		return 0, false
	}
}
