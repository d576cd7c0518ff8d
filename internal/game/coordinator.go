package game

import (
	rand "math/rand/v2"

	"github.com/balootlabs/balootd/internal/rules"
	"github.com/balootlabs/balootd/internal/score"
)

// Dispatch routes one decoded action for the seat, mutating the game
// under the caller's room lock. The returned Effects tell the caller
// what to broadcast and which timers to arm.
func (g *Game) Dispatch(seat int, a Action, rng *rand.Rand) (Effects, error) {
	var fx Effects
	if seat < 0 || seat >= NumSeats || g.Seats[seat] == nil {
		return fx, ErrInvalidPayload
	}

	switch a.Type {
	case ActionPlay:
		return g.PlayCard(seat, a.CardIndex)
	case ActionBid:
		// Gash and Kawesh redeal through startRound, which is the only
		// epoch bump reachable from a bid.
		epochBefore := g.Epoch
		err := g.HandleBid(seat, a.BidAction, a.Suit, rng)
		fx.Redealt = err == nil && g.Epoch != epochBefore
		return fx, err
	case ActionDouble:
		return fx, g.HandleDouble(seat)
	case ActionAkka:
		if a.Suit == nil {
			return fx, ErrInvalidPayload
		}
		return fx, g.HandleAkka(seat, *a.Suit)
	case ActionSawaClaim:
		seq, err := g.HandleSawaClaim(seat)
		if err == nil {
			fx.SawaOpened, fx.SawaSeq = true, seq
		}
		return fx, err
	case ActionSawaResponse:
		err := g.HandleSawaResponse(seat, a.Accept)
		fx.RoundEnded = g.Phase == PhaseRoundOver
		fx.GameEnded = g.Phase == PhaseGameOver
		return fx, err
	case ActionDeclareProject:
		return fx, g.HandleDeclareProject(seat, a.ProjectRef)
	case ActionNextRound:
		return fx, g.StartNextRound(rng)
	case ActionQaydStart:
		seq, err := g.HandleQaydStart(seat)
		if err == nil {
			fx.QaydOpened, fx.QaydSeq = true, seq
		}
		return fx, err
	case ActionQaydViolation:
		return fx, g.HandleQaydSelectViolation(seat, a.Violation)
	case ActionQaydSelectCard:
		if a.Selection == nil {
			return fx, ErrInvalidPayload
		}
		return fx, g.HandleQaydSelectCard(seat, a.CardRole, *a.Selection)
	case ActionQaydConfirm:
		return fx, g.HandleQaydConfirm(seat)
	case ActionQaydCancel:
		return fx, g.HandleQaydCancel(seat)
	case ActionUpdateSettings:
		if a.Settings == nil {
			return fx, ErrInvalidPayload
		}
		return fx, g.UpdateSettings(*a.Settings)
	default:
		return fx, ErrInvalidPayload
	}
}

// PlayCard validates and applies one card play by hand index.
func (g *Game) PlayCard(seat, cardIndex int) (Effects, error) {
	var fx Effects
	r := g.Round
	if g.Phase != PhasePlaying || r == nil || !r.Bidding.Settled {
		return fx, ErrWrongPhase
	}
	if g.TrickTransitioning || r.Sawa.Pending {
		return fx, ErrWrongPhase
	}
	if seat != g.CurrentTurnSeat {
		return fx, ErrNotYourTurn
	}
	p := g.Seats[seat]
	if cardIndex < 0 || cardIndex >= len(p.Hand) {
		return fx, ErrInvalidPayload
	}
	card := p.Hand[cardIndex]
	if !rules.IsLegalPlay(card, p.Hand, r.CurrentTrick, r.Bid.Type, r.Bid.Trump(), r.IsLocked) {
		return fx, ErrIllegalMove
	}

	p.removeCard(card)
	r.CurrentTrick = append(r.CurrentTrick, rules.PlayedCard{Card: card, Seat: seat})
	p.LastAction = card.String()
	fx.Announce = g.noteBalootPlay(seat, card)

	if len(r.CurrentTrick) < NumSeats {
		g.setTurn(NextSeat(seat))
		return fx, nil
	}
	g.completeTrick(&fx)
	return fx, nil
}

// completeTrick settles the on-table trick: winner, points, history.
// The table-clear delay is the caller's; during it the game rejects
// play actions.
func (g *Game) completeTrick(fx *Effects) {
	r := g.Round
	winner := rules.TrickWinner(r.CurrentTrick, r.Bid.Type, r.Bid.Trump())
	points := rules.TrickPoints(r.CurrentTrick, r.Bid.Type, r.Bid.Trump())
	r.TrickHistory = append(r.TrickHistory, Trick{
		Cards:  r.CurrentTrick,
		Winner: winner,
		Points: points,
	})
	r.CurrentTrick = nil
	r.addTrickPoints(winner, points)
	r.TransitionSeq++
	g.TrickTransitioning = true
	// No seat is active while the table clears; the winner's turn is
	// restored when the transition completes.
	g.clearTurn()

	fx.TrickCompleted = true
	fx.TransitionSeq = r.TransitionSeq

	if len(r.TrickHistory) == 1 {
		g.resolveProjects()
	}
	if len(r.TrickHistory) == TricksPerRound {
		r.addTrickPoints(winner, score.LastTrickBonus)
		g.scoreRound()
		fx.RoundEnded = true
		fx.GameEnded = g.Phase == PhaseGameOver
	}
}

// FinishTrickTransition clears the table-clear window and hands the
// turn to the trick winner. Stale sequence numbers (a newer trick
// already completed, or a new round) no-op.
func (g *Game) FinishTrickTransition(epoch, seq uint64) {
	if g.Epoch != epoch || g.Round == nil || g.Round.TransitionSeq != seq {
		return
	}
	if !g.TrickTransitioning {
		return
	}
	g.TrickTransitioning = false
	if n := len(g.Round.TrickHistory); n > 0 {
		g.setTurn(g.Round.TrickHistory[n-1].Winner)
	}
}

// scoreRound runs the scoring pipeline, folds in flat GP awards, and
// moves the game to RoundOver or GameOver.
func (g *Game) scoreRound() {
	r := g.Round
	g.sawaRejectionBonus()

	doubler := r.Bid.BidderTeam().Opponent()
	if r.DoublerTeam != nil {
		doubler = *r.DoublerTeam
	}
	res := score.CalculateRound(score.Input{
		Mode:          r.Bid.Type,
		DoublingLevel: r.DoublingLevel,
		BidderTeam:    r.Bid.BidderTeam(),
		DoublerTeam:   doubler,
		UsCards:       r.UsCardPoints,
		ThemCards:     r.ThemCardPoints,
		UsProjects:    r.Projects.projectAbnat(score.TeamUs),
		ThemProjects:  r.Projects.projectAbnat(score.TeamThem),
		UsBaloot:      r.Baloot.UsBaloot,
		ThemBaloot:    r.Baloot.ThemBaloot,
	})
	res.UsGP += r.UsBonusGP
	res.ThemGP += r.ThemBonusGP

	// Gahwa is winner-takes-match: the round's winner closes the game
	// outright.
	if r.DoublingLevel == DoublingGahwa {
		if res.UsGP >= res.ThemGP {
			res.UsGP = max(res.UsGP, score.MatchTarget)
		} else {
			res.ThemGP = max(res.ThemGP, score.MatchTarget)
		}
	}

	r.Result = &res
	g.addMatchScore(score.TeamUs, res.UsGP)
	g.addMatchScore(score.TeamThem, res.ThemGP)
	g.Match.Rounds = append(g.Match.Rounds, RoundRecord{
		Mode:          r.Bid.Type,
		TrumpSuit:     r.Bid.TrumpSuit,
		Bidder:        r.Bid.Bidder,
		DoublingLevel: r.DoublingLevel,
		Result:        res,
		Tricks:        r.TrickHistory,
	})

	g.Epoch++
	g.TrickTransitioning = false
	g.clearTurn()
	if _, done := g.Match.Winner(); done {
		g.Phase = PhaseGameOver
	} else {
		g.Phase = PhaseRoundOver
	}
}

// StartNextRound rotates the dealer and deals again. Callable from the
// next-round action or the coordinator's scheduled transition; both
// paths are idempotent through the phase gate.
func (g *Game) StartNextRound(rng *rand.Rand) error {
	if g.Phase != PhaseRoundOver {
		return ErrWrongPhase
	}
	g.DealerSeat = NextSeat(g.DealerSeat)
	g.startRound(rng)
	return nil
}

// UpdateSettings swaps the room settings after validation.
func (g *Game) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.BotDifficulty == "" {
		s.BotDifficulty = g.Settings.BotDifficulty
	}
	g.Settings = s
	return nil
}
