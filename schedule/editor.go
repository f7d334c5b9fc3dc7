package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/urawa-cup/tournament-admin/models"
)

var (
	ErrUnknownMatch   = errors.New("match not present in current schedule snapshot")
	ErrSlotLocked     = errors.New("slot is bracket-derived and cannot be dragged")
	ErrMatchCompleted = errors.New("match is completed and its slots are locked")
	ErrNotDragging    = errors.New("no drag in progress")
	ErrNoPendingSwap  = errors.New("no swap awaiting confirmation")
	ErrSwapInFlight   = errors.New("a swap is already in flight")
	ErrSwapFailed     = errors.New("swap mutation failed")
	ErrEditorClosed   = errors.New("editor has been closed")
)

// ConflictChecker answers whether two teams already have a completed match
// against each other in this tournament.
type ConflictChecker interface {
	CheckTeamsPlayed(ctx context.Context, team1ID, team2ID int) (*models.PlayedResult, error)
}

// SwapExecutor performs the atomic two-slot team exchange.
type SwapExecutor interface {
	SwapTeams(ctx context.Context, match1ID int, side1 models.Side, match2ID int, side2 models.Side) error
}

// EditorState is the gesture lifecycle state.
type EditorState int

const (
	StateIdle EditorState = iota
	StateDragging
)

// DragItem is the payload of an in-progress drag gesture.
type DragItem struct {
	MatchID int             `json:"match_id"`
	Side    models.Side     `json:"side"`
	Team    models.TeamSlot `json:"team"`
}

// DropTarget identifies the slot under the pointer at release time.
type DropTarget struct {
	MatchID int         `json:"match_id"`
	Side    models.Side `json:"side"`
}

// PendingSwap is a swap halted on a played-conflict, awaiting operator
// confirmation. It exists until Confirm or Cancel, then is discarded.
type PendingSwap struct {
	From     DragItem            `json:"from"`
	To       DropTarget          `json:"to"`
	FromName string              `json:"from_name"`
	ToName   string              `json:"to_name"`
	Played   models.PlayedResult `json:"played"`
	Score    string              `json:"score,omitempty"`
}

// DropOutcome reports what a drop resolved to.
type DropOutcome string

const (
	DropIgnored      DropOutcome = "ignored"
	DropSwapped      DropOutcome = "swapped"
	DropNeedsConfirm DropOutcome = "needs_confirm"
)

// DropResult is returned from Drop and Confirm.
type DropResult struct {
	Outcome DropOutcome  `json:"outcome"`
	Pending *PendingSwap `json:"pending,omitempty"`
}

// Editor is the drag/drop swap state machine for one tournament's final-day
// board. All transitions happen in response to discrete operator events; a
// mutex serializes them since events arrive over HTTP. The editor never owns
// durable state: it holds the latest fetched snapshot and treats it as stale
// after every mutation (callers refetch and Refresh).
type Editor struct {
	checker ConflictChecker
	swapper SwapExecutor
	logger  *slog.Logger

	mu           sync.Mutex
	state        EditorState
	active       *DragItem
	pending      *PendingSwap
	matches      map[int]*models.Match
	swapInFlight bool
	closed       bool
}

func NewEditor(checker ConflictChecker, swapper SwapExecutor, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		checker: checker,
		swapper: swapper,
		logger:  logger,
		state:   StateIdle,
		matches: make(map[int]*models.Match),
	}
}

// Refresh replaces the schedule snapshot the editor validates gestures
// against. Called after every fetch of the authoritative match list.
func (e *Editor) Refresh(matches []*models.Match) {
	index := make(map[int]*models.Match, len(matches))
	for _, m := range matches {
		index[m.ID] = m
	}
	e.mu.Lock()
	e.matches = index
	e.mu.Unlock()
}

// State returns the current gesture state.
func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActiveItem returns the item being dragged, or nil.
func (e *Editor) ActiveItem() *DragItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	item := *e.active
	return &item
}

// Pending returns the swap awaiting confirmation, or nil.
func (e *Editor) Pending() *PendingSwap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return nil
	}
	p := *e.pending
	return &p
}

// StartDrag begins a gesture on the given slot. Slots whose type is
// winner/loser, and slots of completed matches, never enter dragging.
func (e *Editor) StartDrag(matchID int, side models.Side) (*DragItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEditorClosed
	}
	m, ok := e.matches[matchID]
	if !ok {
		return nil, ErrUnknownMatch
	}
	if m.Status == models.StatusCompleted {
		return nil, ErrMatchCompleted
	}
	slot := m.Slot(side)
	if slot.Locked() {
		return nil, ErrSlotLocked
	}

	e.active = &DragItem{MatchID: matchID, Side: side, Team: slot}
	e.state = StateDragging
	item := *e.active
	return &item, nil
}

// CancelDrag aborts the gesture without a drop.
func (e *Editor) CancelDrag() {
	e.mu.Lock()
	e.active = nil
	e.state = StateIdle
	e.mu.Unlock()
}

// Drop releases the active item over target. The editor returns to idle
// regardless of outcome. Resolution order: invalid or same-slot targets are
// ignored; if both slots hold determined teams the conflict checker runs
// first; otherwise the swap executes immediately. A checker failure is
// logged and the swap proceeds: blocking all editing during a collaborator
// outage is worse than an occasional repeat fixture warning lost.
func (e *Editor) Drop(ctx context.Context, target DropTarget) (*DropResult, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEditorClosed
	}
	if e.state != StateDragging || e.active == nil {
		e.mu.Unlock()
		return &DropResult{Outcome: DropIgnored}, nil
	}

	from := *e.active
	e.active = nil
	e.state = StateIdle

	targetMatch, ok := e.matches[target.MatchID]
	if !ok {
		e.mu.Unlock()
		return &DropResult{Outcome: DropIgnored}, nil
	}
	if from.MatchID == target.MatchID && from.Side == target.Side {
		e.mu.Unlock()
		return &DropResult{Outcome: DropIgnored}, nil
	}
	targetSlot := targetMatch.Slot(target.Side)
	if targetSlot.Locked() || targetMatch.Status == models.StatusCompleted {
		e.mu.Unlock()
		return &DropResult{Outcome: DropIgnored}, nil
	}
	e.mu.Unlock()

	if !from.Team.Resolved() || !targetSlot.Resolved() {
		// Swapping into an empty or bye slot: nothing to conflict with.
		if err := e.executeSwap(ctx, from, target); err != nil {
			return nil, err
		}
		return &DropResult{Outcome: DropSwapped}, nil
	}

	played, err := e.checker.CheckTeamsPlayed(ctx, *from.Team.TeamID, *targetSlot.TeamID)
	if err != nil {
		e.logger.Warn("played-conflict check failed, proceeding with swap",
			slog.Int("team1_id", *from.Team.TeamID),
			slog.Int("team2_id", *targetSlot.TeamID),
			slog.Any("error", err))
		played = nil
	}

	if played == nil || !played.Played {
		if err := e.executeSwap(ctx, from, target); err != nil {
			return nil, err
		}
		return &DropResult{Outcome: DropSwapped}, nil
	}

	pending := &PendingSwap{
		From:     from,
		To:       target,
		FromName: from.Team.DisplayName,
		ToName:   targetSlot.DisplayName,
		Played:   *played,
		Score:    FormatScore(played),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEditorClosed
	}
	e.pending = pending
	p := *pending
	e.mu.Unlock()

	return &DropResult{Outcome: DropNeedsConfirm, Pending: &p}, nil
}

// Confirm executes the pending swap exactly as if no conflict had been
// found. The pending state is discarded whether or not the mutation
// succeeds; a failed swap is reported to the operator, not retried.
func (e *Editor) Confirm(ctx context.Context) (*DropResult, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEditorClosed
	}
	if e.pending == nil {
		e.mu.Unlock()
		return nil, ErrNoPendingSwap
	}
	pending := *e.pending
	e.pending = nil
	e.mu.Unlock()

	if err := e.executeSwap(ctx, pending.From, pending.To); err != nil {
		return nil, err
	}
	return &DropResult{Outcome: DropSwapped}, nil
}

// Cancel discards the pending swap; no mutation occurs.
func (e *Editor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return ErrNoPendingSwap
	}
	e.pending = nil
	return nil
}

// Close tears the editor down. Swap completions that arrive afterwards are
// dropped rather than applied to stale state.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.active = nil
	e.pending = nil
	e.state = StateIdle
	e.mu.Unlock()
}

func (e *Editor) executeSwap(ctx context.Context, from DragItem, to DropTarget) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	if e.swapInFlight {
		e.mu.Unlock()
		return ErrSwapInFlight
	}
	e.swapInFlight = true
	e.mu.Unlock()

	err := e.swapper.SwapTeams(ctx, from.MatchID, from.Side, to.MatchID, to.Side)

	e.mu.Lock()
	e.swapInFlight = false
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return ErrEditorClosed
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	return nil
}

// FormatScore renders a prior meeting's score as "home-away", or "" when
// either score is missing.
func FormatScore(p *models.PlayedResult) string {
	if p == nil || p.HomeScore == nil || p.AwayScore == nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", *p.HomeScore, *p.AwayScore)
}
