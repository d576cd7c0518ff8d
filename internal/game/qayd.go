package game

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/rules"
	"github.com/balootlabs/balootd/internal/score"
)

// QaydStage is the forensic challenge's internal state. Transitions
// only move forward; the engine always closes back to idle.
type QaydStage string

const (
	QaydIdle             QaydStage = "idle"
	QaydReporterChoosing QaydStage = "reporter_choosing"
	QaydAwaitingVerdict  QaydStage = "awaiting_verdict"
	QaydRevealed         QaydStage = "revealed"
)

// Violation types a reporter can accuse.
const (
	ViolationRevoke        = "revoke"
	ViolationNoTrump       = "no_trump"
	ViolationNoOvertrump   = "no_overtrump"
	ViolationTrumpInClosed = "trump_in_closed_double"
	ViolationNoHigherCard  = "no_higher_card"
)

// QaydSelection pins one card from the round's play record.
type QaydSelection struct {
	TrickIndex int       `json:"trickIndex"`
	Card       deck.Card `json:"card"`
	PlayedBy   int       `json:"playedBy"`
}

// QaydState is the paused-game challenge. While it runs the game phase
// is QaydActive and normal play actions are rejected.
type QaydState struct {
	Stage     QaydStage      `json:"stage"`
	Reporter  int            `json:"reporter"`
	Violation string         `json:"violation,omitempty"`
	Crime     *QaydSelection `json:"crime,omitempty"`
	Proof     *QaydSelection `json:"proof,omitempty"`
	Verdict   string         `json:"verdict,omitempty"`
	Seq       uint64         `json:"seq"`
}

func newQaydState() QaydState {
	return QaydState{Stage: QaydIdle}
}

// HandleQaydStart pauses play and opens the challenge. The caller
// schedules the completion timer against the returned sequence.
func (g *Game) HandleQaydStart(seat int) (uint64, error) {
	r := g.Round
	if g.Phase != PhasePlaying || r == nil || !r.Bidding.Settled {
		return 0, ErrWrongPhase
	}
	q := &r.Qayd
	if q.Stage != QaydIdle {
		return 0, ErrWrongPhase
	}
	if len(r.TrickHistory) == 0 {
		return 0, ErrIllegalMove
	}
	*q = QaydState{
		Stage:    QaydReporterChoosing,
		Reporter: seat,
		Seq:      q.Seq + 1,
	}
	g.Phase = PhaseQaydActive
	g.Seats[seat].LastAction = "qayd"
	return q.Seq, nil
}

// HandleQaydSelectViolation fixes the accusation. It can only be set
// once; changing course means cancel and restart.
func (g *Game) HandleQaydSelectViolation(seat int, violation string) error {
	q, err := g.qaydChoosing(seat)
	if err != nil {
		return err
	}
	if q.Violation != "" {
		return ErrIllegalMove
	}
	if !violationValid(violation, g.Mode()) {
		return ErrInvalidPayload
	}
	q.Violation = violation
	return nil
}

// HandleQaydSelectCard pins the crime card, then the proof card. The
// proof must be a later play by the same accused seat, which is what
// makes the earlier play demonstrably illegal.
func (g *Game) HandleQaydSelectCard(seat int, role string, sel QaydSelection) error {
	q, err := g.qaydChoosing(seat)
	if err != nil {
		return err
	}
	if q.Violation == "" {
		return ErrIllegalMove
	}
	if !g.selectionInRecord(sel) {
		return ErrInvalidPayload
	}
	switch role {
	case "crime":
		if q.Crime != nil {
			return ErrIllegalMove
		}
		if teamOf(sel.PlayedBy) == teamOf(q.Reporter) {
			return ErrInvalidPayload
		}
		if sel.TrickIndex >= len(g.Round.TrickHistory) {
			return ErrInvalidPayload // crime must come from a completed trick
		}
		q.Crime = &sel
	case "proof":
		if q.Crime == nil || q.Proof != nil {
			return ErrIllegalMove
		}
		if sel.PlayedBy != q.Crime.PlayedBy || sel.TrickIndex <= q.Crime.TrickIndex {
			return ErrInvalidPayload
		}
		q.Proof = &sel
	default:
		return ErrInvalidPayload
	}
	return nil
}

// HandleQaydConfirm advances the challenge: with both cards selected
// it computes and reveals the verdict; a second confirm applies it and
// resumes play.
func (g *Game) HandleQaydConfirm(seat int) error {
	r := g.Round
	if g.Phase != PhaseQaydActive || r == nil {
		return ErrWrongPhase
	}
	q := &r.Qayd
	if seat != q.Reporter {
		return ErrNotYourTurn
	}
	switch q.Stage {
	case QaydReporterChoosing:
		if q.Crime == nil || q.Proof == nil {
			return ErrIllegalMove
		}
		q.Stage = QaydAwaitingVerdict
		q.Verdict = g.evaluateQayd()
		q.Stage = QaydRevealed
		return nil
	case QaydRevealed:
		g.closeQayd(true)
		return nil
	default:
		return ErrWrongPhase
	}
}

// HandleQaydCancel abandons the challenge before the verdict is
// revealed. No penalty either way.
func (g *Game) HandleQaydCancel(seat int) error {
	r := g.Round
	if g.Phase != PhaseQaydActive || r == nil {
		return ErrWrongPhase
	}
	q := &r.Qayd
	if seat != q.Reporter {
		return ErrNotYourTurn
	}
	if q.Stage == QaydRevealed {
		return ErrIllegalMove
	}
	g.closeQayd(false)
	return nil
}

// QaydTimeout fires when the reporter runs out of time: cancel if the
// verdict is not out yet, otherwise auto-confirm the close.
func (g *Game) QaydTimeout(seq uint64) {
	r := g.Round
	if r == nil || g.Phase != PhaseQaydActive || r.Qayd.Seq != seq {
		return
	}
	g.closeQayd(r.Qayd.Stage == QaydRevealed)
}

// closeQayd applies the verdict (when settle is true and a verdict
// exists) and returns the game to play.
func (g *Game) closeQayd(settle bool) {
	r := g.Round
	q := &r.Qayd
	if settle && q.Verdict != "" {
		reporterTeam := teamOf(q.Reporter)
		if q.Verdict == "guilty" {
			r.addBonusGP(reporterTeam, score.QaydGuiltyAward(r.Bid.Type, r.DoublingLevel))
		} else {
			r.addBonusGP(reporterTeam.Opponent(), score.PenaltyInnocentQaydGP)
		}
	}
	*q = QaydState{Stage: QaydIdle, Seq: q.Seq + 1}
	g.Phase = PhasePlaying
}

func (g *Game) qaydChoosing(seat int) (*QaydState, error) {
	r := g.Round
	if g.Phase != PhaseQaydActive || r == nil {
		return nil, ErrWrongPhase
	}
	q := &r.Qayd
	if q.Stage != QaydReporterChoosing {
		return nil, ErrWrongPhase
	}
	if seat != q.Reporter {
		return nil, ErrNotYourTurn
	}
	return q, nil
}

// selectionInRecord checks that the selection names a real play. A
// trick index equal to the history length refers to the on-table trick.
func (g *Game) selectionInRecord(sel QaydSelection) bool {
	r := g.Round
	var cards []rules.PlayedCard
	switch {
	case sel.TrickIndex >= 0 && sel.TrickIndex < len(r.TrickHistory):
		cards = r.TrickHistory[sel.TrickIndex].Cards
	case sel.TrickIndex == len(r.TrickHistory):
		cards = r.CurrentTrick
	default:
		return false
	}
	for _, pc := range cards {
		if pc.Card == sel.Card && pc.Seat == sel.PlayedBy {
			return true
		}
	}
	return false
}

func violationValid(v string, mode deck.Mode) bool {
	switch mode {
	case deck.ModeHokum:
		return v == ViolationRevoke || v == ViolationNoTrump ||
			v == ViolationNoOvertrump || v == ViolationTrumpInClosed
	case deck.ModeSun:
		return v == ViolationRevoke || v == ViolationNoHigherCard
	}
	return false
}

// evaluateQayd judges the accusation against the play record. The
// proof is a later play by the accused; guilt means that holding the
// proof card made the crime play illegal at the time.
func (g *Game) evaluateQayd() string {
	r := g.Round
	q := &r.Qayd
	crime := *q.Crime
	proof := *q.Proof

	trick := r.TrickHistory[crime.TrickIndex]
	pos := -1
	for i, pc := range trick.Cards {
		if pc.Card == crime.Card && pc.Seat == crime.PlayedBy {
			pos = i
		}
	}
	if pos <= 0 {
		// Leading a trick cannot violate a follow rule.
		return "innocent"
	}
	led := trick.Cards[0].Card.Suit
	prefix := trick.Cards[:pos]
	mode := r.Bid.Type
	trump := r.Bid.Trump()

	guilty := false
	switch q.Violation {
	case ViolationRevoke:
		guilty = crime.Card.Suit != led && proof.Card.Suit == led
	case ViolationNoTrump:
		if crime.Card.Suit != led && crime.Card.Suit != trump && proof.Card.Suit == trump {
			// Exempt when the accused's partner held the trick.
			guilty = rules.TrickWinner(prefix, mode, trump) != PartnerOf(crime.PlayedBy)
		}
	case ViolationNoOvertrump:
		if r.IsLocked || crime.Card.Suit != trump || proof.Card.Suit != trump {
			break
		}
		best := bestOfSuit(prefix, trump, mode, true)
		guilty = best > deck.OrderValue(crime.Card, mode, true) &&
			deck.OrderValue(proof.Card, mode, true) > best
	case ViolationTrumpInClosed:
		guilty = r.IsLocked && led != trump &&
			crime.Card.Suit == trump && proof.Card.Suit == led
	case ViolationNoHigherCard:
		if crime.Card.Suit != led || proof.Card.Suit != led {
			break
		}
		best := bestOfSuit(prefix, led, mode, false)
		guilty = best > deck.OrderValue(crime.Card, mode, false) &&
			deck.OrderValue(proof.Card, mode, false) > best
	}
	if guilty {
		return "guilty"
	}
	return "innocent"
}

// bestOfSuit returns the top order value of the suit among the plays,
// or -1 when the suit is absent.
func bestOfSuit(plays []rules.PlayedCard, suit deck.Suit, mode deck.Mode, isTrump bool) int {
	best := -1
	for _, pc := range plays {
		if pc.Card.Suit != suit {
			continue
		}
		if v := deck.OrderValue(pc.Card, mode, isTrump); v > best {
			best = v
		}
	}
	return best
}
