package game

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/rules"
	"github.com/balootlabs/balootd/internal/score"
)

// GameView is the client-bound projection of a Game: every seat index
// rotated so the recipient sits at Bottom (0), every hidden zone
// redacted. Team scores flip for odd seats so "us" is always the
// viewer's team.
type GameView struct {
	RoomID string `json:"roomId"`
	Phase  Phase  `json:"phase"`

	Players          [NumSeats]PlayerView `json:"players"`
	CurrentTurnIndex int                  `json:"currentTurnIndex"`
	DealerIndex      int                  `json:"dealerIndex"`

	Settings           Settings `json:"settings"`
	TrickTransitioning bool     `json:"trickTransitioning"`

	Bidding       *BiddingView       `json:"bidding,omitempty"`
	Bid           *BidView           `json:"bid,omitempty"`
	FloorCard     *deck.Card         `json:"floorCard,omitempty"`
	DoublingLevel int                `json:"doublingLevel,omitempty"`
	IsLocked      bool               `json:"isLocked,omitempty"`
	TableCards    []rules.PlayedCard `json:"tableCards,omitempty"`
	TricksTaken   int                `json:"tricksTaken"`
	LastTrick     *Trick             `json:"lastTrick,omitempty"`

	MyProjects   []rules.Project         `json:"myProjects,omitempty"`
	Declarations map[int][]rules.Project `json:"declarations,omitempty"`

	Sawa *SawaView `json:"sawa,omitempty"`
	Qayd *QaydView `json:"qayd,omitempty"`

	UsScore   int           `json:"usScore"`
	ThemScore int           `json:"themScore"`
	Result    *score.Result `json:"result,omitempty"`
}

// PlayerView hides every hand but the recipient's own.
type PlayerView struct {
	Name          string      `json:"name"`
	IsBot         bool        `json:"isBot"`
	BotDifficulty string      `json:"botDifficulty,omitempty"`
	Hand          []deck.Card `json:"hand,omitempty"`
	HandCount     int         `json:"handCount"`
	IsActiveTurn  bool        `json:"isActiveTurn"`
	IsDealer      bool        `json:"isDealer"`
	LastAction    string      `json:"lastAction,omitempty"`
	Connected     bool        `json:"connected"`
}

type BiddingView struct {
	Stage   int `json:"stage"`
	Speaker int `json:"speaker"`
	Passes  int `json:"passes"`
}

type BidView struct {
	Type      deck.Mode  `json:"type"`
	TrumpSuit *deck.Suit `json:"trumpSuit,omitempty"`
	Bidder    int        `json:"bidder"`
}

type SawaView struct {
	Pending   bool           `json:"pending"`
	Claimer   int            `json:"claimer"`
	Responded [NumSeats]bool `json:"responded"`
}

type QaydView struct {
	Stage     QaydStage `json:"stage"`
	Reporter  int       `json:"reporter"`
	Violation string    `json:"violation,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
}

// View builds the projection for one seat.
func (g *Game) View(seat int) *GameView {
	rot := func(i int) int {
		if i < 0 {
			return i
		}
		return (i - seat + NumSeats) % NumSeats
	}
	viewerOdd := seat%2 == 1

	v := &GameView{
		RoomID:             g.RoomID,
		Phase:              g.Phase,
		CurrentTurnIndex:   rot(g.CurrentTurnSeat),
		DealerIndex:        rot(g.DealerSeat),
		Settings:           g.Settings,
		TrickTransitioning: g.TrickTransitioning,
		UsScore:            g.Match.UsScore,
		ThemScore:          g.Match.ThemScore,
	}
	if viewerOdd {
		v.UsScore, v.ThemScore = v.ThemScore, v.UsScore
	}

	for i := 0; i < NumSeats; i++ {
		p := g.Seats[i]
		if p == nil {
			continue
		}
		pv := PlayerView{
			Name:          p.Name,
			IsBot:         p.IsBot,
			BotDifficulty: p.BotDifficulty,
			HandCount:     len(p.Hand),
			IsActiveTurn:  p.IsActiveTurn,
			IsDealer:      p.IsDealer,
			LastAction:    p.LastAction,
			Connected:     p.Connected,
		}
		if i == seat {
			pv.Hand = p.Hand
		}
		v.Players[rot(i)] = pv
	}

	r := g.Round
	if r == nil {
		return v
	}

	if !r.Bidding.Settled {
		v.Bidding = &BiddingView{
			Stage:   r.Bidding.Stage,
			Speaker: rot(r.Bidding.Speaker),
			Passes:  r.Bidding.Passes,
		}
	}
	if r.Bid.Bidder != nil {
		v.Bid = &BidView{
			Type:      r.Bid.Type,
			TrumpSuit: r.Bid.TrumpSuit,
			Bidder:    rot(*r.Bid.Bidder),
		}
	}
	v.FloorCard = r.FloorCard
	v.DoublingLevel = r.DoublingLevel
	v.IsLocked = r.IsLocked
	v.TricksTaken = len(r.TrickHistory)

	for _, pc := range r.CurrentTrick {
		v.TableCards = append(v.TableCards, rules.PlayedCard{Card: pc.Card, Seat: rot(pc.Seat)})
	}
	if n := len(r.TrickHistory); n > 0 {
		last := r.TrickHistory[n-1]
		lt := Trick{Winner: rot(last.Winner), Points: last.Points}
		for _, pc := range last.Cards {
			lt.Cards = append(lt.Cards, rules.PlayedCard{Card: pc.Card, Seat: rot(pc.Seat)})
		}
		v.LastTrick = &lt
	}

	v.MyProjects = r.Projects.Candidates[seat]
	if r.Projects.Resolved {
		decls := make(map[int][]rules.Project)
		for i := 0; i < NumSeats; i++ {
			if len(r.Projects.Kept[i]) > 0 {
				decls[rot(i)] = r.Projects.Kept[i]
			}
		}
		if len(decls) > 0 {
			v.Declarations = decls
		}
	}

	if r.Sawa.Pending {
		sv := SawaView{Pending: true, Claimer: rot(r.Sawa.Claimer)}
		for i := 0; i < NumSeats; i++ {
			sv.Responded[rot(i)] = r.Sawa.Responded[i]
		}
		v.Sawa = &sv
	}
	if r.Qayd.Stage != QaydIdle && r.Qayd.Stage != "" {
		v.Qayd = &QaydView{
			Stage:     r.Qayd.Stage,
			Reporter:  rot(r.Qayd.Reporter),
			Violation: r.Qayd.Violation,
			Verdict:   r.Qayd.Verdict,
		}
	}
	if r.Result != nil {
		res := *r.Result
		if viewerOdd {
			res.UsGP, res.ThemGP = res.ThemGP, res.UsGP
		}
		v.Result = &res
	}
	return v
}
