package game

import (
	rand "math/rand/v2"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/rules"
	"github.com/balootlabs/balootd/internal/score"
)

// Round is the aggregate state of one deal. Sub-engine state lives
// here as plain structs; the engines themselves are stateless
// functions over the Game.
type Round struct {
	Bid           Bid          `json:"bid"`
	Bidding       BiddingState `json:"bidding"`
	DoublingLevel int          `json:"doublingLevel"`
	DoublerTeam   *score.Team  `json:"doublerTeam,omitempty"`
	IsLocked      bool         `json:"isLocked"`

	FloorCard *deck.Card  `json:"floorCard,omitempty"`
	Rest      []deck.Card `json:"rest,omitempty"` // undealt until the auction settles

	CurrentTrick  []rules.PlayedCard `json:"currentTrick"`
	TrickHistory  []Trick            `json:"trickHistory"`
	TransitionSeq uint64             `json:"transitionSeq"` // bumps per completed trick, stales clear timers

	UsCardPoints   int `json:"usCardPoints"`
	ThemCardPoints int `json:"themCardPoints"`
	UsBonusGP      int `json:"usBonusGP"`
	ThemBonusGP    int `json:"themBonusGP"`

	Projects ProjectState `json:"projects"`
	Akka     AkkaState    `json:"akka"`
	Sawa     SawaState    `json:"sawa"`
	Baloot   BalootState  `json:"baloot"`
	Qayd     QaydState    `json:"qayd"`

	Result *score.Result `json:"result,omitempty"`

	// dealt holds the opening hands until the Game copies them to the
	// seats. It stays out of the serialized form: by the time a Round
	// is persisted the cards live in the players' hands.
	dealt [NumSeats][]deck.Card
}

// newRound shuffles and deals the opening five cards per seat plus the
// face-up floor card. The remaining eleven cards stay undealt until a
// buy settles the auction.
func newRound(dealer int, rng *rand.Rand) *Round {
	cards := deck.New()
	deck.Shuffle(cards, rng)

	r := &Round{
		DoublingLevel: DoublingNone,
		Bidding:       newBiddingState(dealer),
		Projects:      newProjectState(),
		Akka:          newAkkaState(),
		Sawa:          newSawaState(),
		Baloot:        newBalootState(),
		Qayd:          newQaydState(),
	}

	floor := cards[20]
	r.FloorCard = &floor
	r.Rest = append([]deck.Card(nil), cards[21:]...)
	for seat := 0; seat < NumSeats; seat++ {
		r.dealt[seat] = append([]deck.Card(nil), cards[seat*5:seat*5+5]...)
	}
	return r
}

// addTrickPoints accumulates raw card Abnat for the trick winner's team.
func (r *Round) addTrickPoints(winner, points int) {
	if score.TeamOfSeat(winner) == score.TeamUs {
		r.UsCardPoints += points
	} else {
		r.ThemCardPoints += points
	}
}

// addBonusGP accumulates flat GP awards (akka, sawa, qayd penalties)
// applied additively after round scoring.
func (r *Round) addBonusGP(team score.Team, gp int) {
	if team == score.TeamUs {
		r.UsBonusGP += gp
	} else {
		r.ThemBonusGP += gp
	}
}

// ledSuit returns the suit of the current trick's first card.
func (r *Round) ledSuit() (deck.Suit, bool) {
	if len(r.CurrentTrick) == 0 {
		return 0, false
	}
	return r.CurrentTrick[0].Card.Suit, true
}

// PlayedRecord returns every card already out of hands this round:
// the completed tricks plus the on-table trick. Bots use it for card
// counting.
func (r *Round) PlayedRecord() []rules.PlayedCard {
	return r.playedCards()
}

// playedCards returns every card already out of hands this round: the
// completed tricks plus the on-table trick.
func (r *Round) playedCards() []rules.PlayedCard {
	var out []rules.PlayedCard
	for _, t := range r.TrickHistory {
		out = append(out, t.Cards...)
	}
	out = append(out, r.CurrentTrick...)
	return out
}
