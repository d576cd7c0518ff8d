package score

import (
	"github.com/balootlabs/balootd/internal/deck"
)

// Penalty values for the claim sub-protocols. This table is the single
// authoritative source; the engines consult it rather than carrying
// their own constants.
const (
	// PenaltyInvalidAkkaGP is awarded to the opposing team when an Akka
	// claim fails verification.
	PenaltyInvalidAkkaGP = 2

	// AwardValidAkkaGP is granted to the claiming team when the claim
	// verifies.
	AwardValidAkkaGP = 2

	// PenaltyRejectedSawaGP is what refusing a good Sawa claim costs:
	// when the claimer's team takes every remaining trick anyway, this
	// is awarded to the claimer's team on top of the round score.
	PenaltyRejectedSawaGP = 2

	// PenaltyInnocentQaydGP is what an innocent verdict costs the
	// reporting team, awarded to the accused team.
	PenaltyInnocentQaydGP = 2
)

// QaydGuiltyAward is the round value handed to the reporting team on a
// guilty verdict: the full pool for the mode at the round's doubling
// level.
func QaydGuiltyAward(mode deck.Mode, doublingLevel int) int {
	pool := hokumPoolGP
	if mode == deck.ModeSun {
		pool = sunPoolGP
	}
	if doublingLevel > 1 {
		return pool * doublingLevel
	}
	return pool
}
