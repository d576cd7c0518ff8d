package game

import "github.com/balootlabs/balootd/internal/deck"

// ActionType enumerates the in-game actions a seat can submit.
type ActionType string

const (
	ActionPlay           ActionType = "PLAY"
	ActionBid            ActionType = "BID"
	ActionDouble         ActionType = "DOUBLE"
	ActionAkka           ActionType = "AKKA"
	ActionSawaClaim      ActionType = "SAWA_CLAIM"
	ActionSawaResponse   ActionType = "SAWA_RESPONSE"
	ActionDeclareProject ActionType = "DECLARE_PROJECT"
	ActionNextRound      ActionType = "NEXT_ROUND"
	ActionQaydStart      ActionType = "QAYD_START"
	ActionQaydViolation  ActionType = "QAYD_SELECT_VIOLATION"
	ActionQaydSelectCard ActionType = "QAYD_SELECT_CARD"
	ActionQaydConfirm    ActionType = "QAYD_CONFIRM"
	ActionQaydCancel     ActionType = "QAYD_CANCEL"
	ActionUpdateSettings ActionType = "UPDATE_SETTINGS"
)

// KnownActions is the schema gate the ingress pipeline checks before
// anything touches game state.
var KnownActions = map[ActionType]bool{
	ActionPlay: true, ActionBid: true, ActionDouble: true,
	ActionAkka: true, ActionSawaClaim: true, ActionSawaResponse: true,
	ActionDeclareProject: true, ActionNextRound: true,
	ActionQaydStart: true, ActionQaydViolation: true,
	ActionQaydSelectCard: true, ActionQaydConfirm: true,
	ActionQaydCancel: true, ActionUpdateSettings: true,
}

// Action is one decoded game action. Only the fields relevant to the
// type are set; Dispatch validates per type.
type Action struct {
	Type ActionType `json:"type"`

	CardIndex     int            `json:"cardIndex,omitempty"`
	SkipProfessor bool           `json:"skip_professor,omitempty"`
	BidAction     string         `json:"action,omitempty"`
	Suit          *deck.Suit     `json:"suit,omitempty"`
	Accept        bool           `json:"accept,omitempty"`
	ProjectRef    int            `json:"projectRef,omitempty"`
	Violation     string         `json:"violationType,omitempty"`
	CardRole      string         `json:"role,omitempty"`
	Selection     *QaydSelection `json:"selection,omitempty"`
	Settings      *Settings      `json:"settings,omitempty"`
}

// Effects tells the caller what side work a successful dispatch needs:
// announcements to broadcast and timers to schedule. Sequence numbers
// are captured so stale timers can be ignored.
type Effects struct {
	Announce string

	SawaOpened bool
	SawaSeq    uint64

	QaydOpened bool
	QaydSeq    uint64

	TrickCompleted bool
	TransitionSeq  uint64

	RoundEnded bool
	GameEnded  bool
	Redealt    bool
}
