package game

import (
	rand "math/rand/v2"
	"strings"

	"github.com/balootlabs/balootd/internal/deck"
)

// Bid actions accepted while the auction runs.
const (
	BidPass   = "PASS"
	BidSun    = "SUN"
	BidHokum  = "HOKUM"
	BidAshkal = "ASHKAL"
	BidKawesh = "KAWESH"
)

// BiddingState is the two-stage auction. Stage 1 offers the floor
// card's suit as trump; stage 2 opens the choice of suit. All four
// passing stage 2 is a Gash redeal with the dealer rotated.
type BiddingState struct {
	Stage   int  `json:"stage"` // 1 or 2
	Speaker int  `json:"speaker"`
	Passes  int  `json:"passes"`
	Settled bool `json:"settled"`
}

func newBiddingState(dealer int) BiddingState {
	return BiddingState{Stage: 1, Speaker: NextSeat(dealer)}
}

// HandleBid applies one auction action from the given seat. A buy
// settles the auction and moves the game to trick play; redeal paths
// (Gash, Kawesh) need the rng.
func (g *Game) HandleBid(seat int, action string, suit *deck.Suit, rng *rand.Rand) error {
	if g.Phase != PhaseBidding || g.Round == nil {
		return ErrWrongPhase
	}
	b := &g.Round.Bidding
	if b.Settled || seat != b.Speaker {
		return ErrNotYourTurn
	}

	switch strings.ToUpper(action) {
	case BidPass:
		return g.bidPass(seat, rng)
	case BidSun:
		return g.settleBid(seat, deck.ModeSun, nil, seat)
	case BidAshkal:
		return g.settleBid(seat, deck.ModeSun, nil, PartnerOf(seat))
	case BidHokum:
		return g.bidHokum(seat, suit)
	case BidKawesh:
		return g.bidKawesh(seat, rng)
	default:
		return ErrInvalidBid
	}
}

func (g *Game) bidPass(seat int, rng *rand.Rand) error {
	b := &g.Round.Bidding
	if b.Stage == 2 && b.Passes == NumSeats-1 && seat == g.DealerSeat && g.Settings.StrictMode {
		// The table has passed around to the dealer twice; under strict
		// rules the dealer must pick a contract.
		return ErrInvalidBid
	}
	b.Passes++
	g.Seats[seat].LastAction = "pass"
	if b.Passes < NumSeats {
		b.Speaker = NextSeat(b.Speaker)
		g.setTurn(b.Speaker)
		return nil
	}
	if b.Stage == 1 {
		b.Stage = 2
		b.Passes = 0
		b.Speaker = NextSeat(g.DealerSeat)
		g.setTurn(b.Speaker)
		return nil
	}
	// Gash: nobody wants the deal. Rotate the dealer and redeal.
	g.DealerSeat = NextSeat(g.DealerSeat)
	g.Epoch++
	g.startRound(rng)
	return nil
}

func (g *Game) bidHokum(seat int, suit *deck.Suit) error {
	b := &g.Round.Bidding
	if b.Stage == 1 {
		trump := g.Round.FloorCard.Suit
		return g.settleBid(seat, deck.ModeHokum, &trump, seat)
	}
	if suit == nil || *suit == g.Round.FloorCard.Suit {
		return ErrInvalidBid
	}
	trump := *suit
	return g.settleBid(seat, deck.ModeHokum, &trump, seat)
}

// bidKawesh redeals with the same dealer when the speaker's opening
// hand holds neither an Ace nor a Ten. Stage 1 only.
func (g *Game) bidKawesh(seat int, rng *rand.Rand) error {
	if g.Round.Bidding.Stage != 1 {
		return ErrInvalidBid
	}
	for _, c := range g.Seats[seat].Hand {
		if c.Rank == deck.Ace || c.Rank == deck.Ten {
			return ErrInvalidBid
		}
	}
	g.Epoch++
	g.startRound(rng)
	return nil
}

// settleBid closes the auction: the floor card goes to the receiving
// seat, the rest of the deck is dealt out to eight cards per hand, and
// trick play opens at the seat after the dealer.
func (g *Game) settleBid(bidder int, mode deck.Mode, trump *deck.Suit, floorSeat int) error {
	r := g.Round
	b := bidder
	r.Bid = Bid{Type: mode, TrumpSuit: trump, Bidder: &b}
	r.Bidding.Settled = true
	g.Seats[bidder].LastAction = strings.ToLower(mode.String())

	g.Seats[floorSeat].Hand = append(g.Seats[floorSeat].Hand, *r.FloorCard)
	r.FloorCard = nil

	// 11 undealt cards: two complete the floor receiver's hand, three
	// go to everyone else.
	next := 0
	take := func(n int) []deck.Card {
		out := r.Rest[next : next+n]
		next += n
		return out
	}
	for off := 0; off < NumSeats; off++ {
		seat := (NextSeat(g.DealerSeat) + off) % NumSeats
		n := 3
		if seat == floorSeat {
			n = 2
		}
		g.Seats[seat].Hand = append(g.Seats[seat].Hand, take(n)...)
	}
	r.Rest = nil

	for seat := 0; seat < NumSeats; seat++ {
		deck.SortForDisplay(g.Seats[seat].Hand, mode, r.Bid.Trump())
		r.Projects.Candidates[seat] = detectSeatProjects(g.Seats[seat].Hand, mode)
	}

	g.Phase = PhasePlaying
	g.setTurn(NextSeat(g.DealerSeat))
	return nil
}

// HandleDouble escalates the doubling level. Legal once the contract
// is set and before the first card hits the table; teams must
// alternate and levels only go up. Doubling a Hokum contract locks the
// over-trump relaxation away.
func (g *Game) HandleDouble(seat int) error {
	r := g.Round
	if g.Phase != PhasePlaying || r == nil || !r.Bidding.Settled {
		return ErrWrongPhase
	}
	if len(r.CurrentTrick) > 0 || len(r.TrickHistory) > 0 {
		return ErrWrongPhase
	}
	if r.DoublingLevel >= DoublingGahwa {
		return ErrIllegalMove
	}
	team := teamOf(seat)
	if r.DoublingLevel == DoublingNone {
		// Opening double must come from the non-bidding team.
		if team == r.Bid.BidderTeam() {
			return ErrIllegalMove
		}
	} else if r.DoublerTeam != nil && team == *r.DoublerTeam {
		return ErrIllegalMove
	}
	r.DoublingLevel++
	r.DoublerTeam = &team
	if r.Bid.Type == deck.ModeHokum {
		r.IsLocked = true
	}
	g.Seats[seat].LastAction = doublingName(r.DoublingLevel)
	return nil
}

func doublingName(level int) string {
	switch level {
	case DoublingDobl:
		return "dobl"
	case DoublingKhamsin:
		return "khamsin"
	case DoublingRabaa:
		return "rabaa"
	case DoublingGahwa:
		return "gahwa"
	}
	return ""
}
