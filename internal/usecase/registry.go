package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/bot"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

type opponent interface {
	ChooseMove(board entity.Board, mark entity.Mark, difficulty bot.Difficulty) (entity.Cell, error)
}

// sessionRepo mirrors live sessions outside the process. Failures are logged and never undo a move.
type sessionRepo interface {
	Save(ctx context.Context, view entity.SessionView) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]entity.SessionView, error)
}

// slot serializes every operation on one session key. refs counts goroutines holding or
// waiting for the slot; it is guarded by SessionRegistry.mu.
type slot struct {
	mu   sync.Mutex
	game *entity.Game
	refs int
}

// SessionRegistry maps a session key (one per chat) to at most one live game.
type SessionRegistry struct {
	logger   *slog.Logger
	opponent opponent
	repo     sessionRepo

	mu    sync.Mutex
	slots map[string]*slot
}

// NewSessionRegistry - repo may be nil when sessions are kept in memory only.
func NewSessionRegistry(logger *slog.Logger, opponent opponent, repo sessionRepo) *SessionRegistry {
	return &SessionRegistry{
		logger:   logger.With("component", "registry"),
		opponent: opponent,
		repo:     repo,
		slots:    make(map[string]*slot),
	}
}

// acquire returns the locked slot for key, creating it if needed.
func (that *SessionRegistry) acquire(key string) *slot {
	that.mu.Lock()
	s, ok := that.slots[key]
	if !ok {
		s = &slot{}
		that.slots[key] = s
	}
	s.refs++
	that.mu.Unlock()

	s.mu.Lock()

	return s
}

// release unlocks the slot and drops it from the map once nobody uses it and it holds no game.
func (that *SessionRegistry) release(key string, s *slot) {
	empty := s.game == nil
	s.mu.Unlock()

	that.mu.Lock()
	defer that.mu.Unlock()

	s.refs--
	if s.refs == 0 && empty {
		delete(that.slots, key)
	}
}

func (that *SessionRegistry) CreateSession(ctx context.Context, key string, mode entity.Mode, initiator string) (entity.SessionView, error) {
	if !mode.IsValid() {
		return entity.SessionView{}, fmt.Errorf("%w: %s", apperror.ErrWrongMode, mode)
	}

	s := that.acquire(key)
	defer that.release(key, s)

	if s.game != nil {
		return entity.SessionView{}, apperror.ErrAlreadyActive
	}

	s.game = entity.NewGame(mode, initiator)
	view := s.game.View(key)
	that.save(ctx, view)

	that.logger.Info("session created", "key", key, "mode", mode, "player", initiator)

	return view, nil
}

// RestartSession drops whatever game key holds and starts a new one in a single step.
func (that *SessionRegistry) RestartSession(ctx context.Context, key string, mode entity.Mode, initiator string) (entity.SessionView, error) {
	if !mode.IsValid() {
		return entity.SessionView{}, fmt.Errorf("%w: %s", apperror.ErrWrongMode, mode)
	}

	s := that.acquire(key)
	defer that.release(key, s)

	s.game = entity.NewGame(mode, initiator)
	view := s.game.View(key)
	that.save(ctx, view)

	that.logger.Info("session restarted", "key", key, "mode", mode, "player", initiator)

	return view, nil
}

func (that *SessionRegistry) JoinSession(ctx context.Context, key, playerID string) (entity.SessionView, error) {
	s := that.acquire(key)
	defer that.release(key, s)

	if s.game == nil {
		return entity.SessionView{}, apperror.ErrNotFound
	}

	if err := s.game.Join(playerID); err != nil {
		return entity.SessionView{}, err
	}

	view := s.game.View(key)
	that.save(ctx, view)

	that.logger.Info("player joined", "key", key, "player", playerID)

	return view, nil
}

// ApplyMove validates and plays playerID's move, then lets the bot answer in single-player modes.
// The whole sequence runs under the key's lock.
func (that *SessionRegistry) ApplyMove(ctx context.Context, key, playerID string, row, col int) (entity.SessionView, error) {
	log := that.logger.With("method", "ApplyMove", "key", key)

	s := that.acquire(key)
	defer that.release(key, s)

	game := s.game
	if game == nil {
		return entity.SessionView{}, apperror.ErrNotFound
	}

	// a finished game has no turn left to wait for
	if game.IsFinished() && game.HasPlayer(playerID) {
		return entity.SessionView{}, apperror.ErrGameOver
	}

	if err := authorize(game, playerID); err != nil {
		return entity.SessionView{}, err
	}

	if err := game.ApplyMove(row, col, game.Turn()); err != nil {
		return entity.SessionView{}, err
	}

	if game.Mode().IsSinglePlayer() && !game.IsFinished() {
		if err := that.replyWithBot(game); err != nil {
			// the player's move stays applied
			log.Error("bot failed to move", "error", err)

			view := game.View(key)
			that.save(ctx, view)

			return view, fmt.Errorf("bot move: %w", err)
		}
	}

	view := game.View(key)
	that.save(ctx, view)

	if game.IsFinished() {
		log.Info("game finished", "status", view.Outcome.Status, "winner", view.Outcome.Winner)
	}

	return view, nil
}

func authorize(game *entity.Game, playerID string) error {
	if game.Mode().IsSinglePlayer() {
		if playerID != game.FirstPlayer() {
			return apperror.ErrNotInGame
		}

		return nil
	}

	// Cross may open before anyone has taken Circle
	if playerID != game.PlayerFor(game.Turn()) {
		return apperror.ErrNotYourTurn
	}

	return nil
}

func (that *SessionRegistry) replyWithBot(game *entity.Game) error {
	difficulty, ok := bot.DifficultyFor(game.Mode())
	if !ok {
		return fmt.Errorf("no difficulty for mode %s", game.Mode())
	}

	cell, err := that.opponent.ChooseMove(game.Board(), game.Turn(), difficulty)
	if err != nil {
		return fmt.Errorf("choose move: %w", err)
	}

	if err = game.ApplyMove(cell.Row, cell.Col, game.Turn()); err != nil {
		return fmt.Errorf("apply bot move (%d, %d): %w", cell.Row, cell.Col, err)
	}

	return nil
}

func (that *SessionRegistry) GetSession(_ context.Context, key string) (entity.SessionView, error) {
	s := that.acquire(key)
	defer that.release(key, s)

	if s.game == nil {
		return entity.SessionView{}, apperror.ErrNotFound
	}

	return s.game.View(key), nil
}

// TerminateSession removes key's game. Terminating an absent key is not an error.
func (that *SessionRegistry) TerminateSession(ctx context.Context, key string) {
	s := that.acquire(key)
	defer that.release(key, s)

	if s.game == nil {
		return
	}

	s.game = nil
	that.delete(ctx, key)

	that.logger.Info("session terminated", "key", key)
}

// LeaveSession lets a participant end key's game. Membership is checked under the same lock
// that removes the game.
func (that *SessionRegistry) LeaveSession(ctx context.Context, key, playerID string) error {
	s := that.acquire(key)
	defer that.release(key, s)

	if s.game == nil {
		return apperror.ErrNotFound
	}

	if !s.game.HasPlayer(playerID) {
		return apperror.ErrNotInGame
	}

	s.game = nil
	that.delete(ctx, key)

	that.logger.Info("player left the session", "key", key, "player", playerID)

	return nil
}

// keys lists every key with a slot. A slot may be empty while someone waits on it.
func (that *SessionRegistry) keys() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	keys := make([]string, 0, len(that.slots))
	for key := range that.slots {
		keys = append(keys, key)
	}

	return keys
}

// Restore loads mirrored sessions, skipping keys that already hold a game and snapshots that
// fail validation. It returns the number of sessions restored.
func (that *SessionRegistry) Restore(ctx context.Context) (int, error) {
	log := that.logger.With("method", "Restore")

	if that.repo == nil {
		return 0, nil
	}

	views, err := that.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	restored := 0
	for _, view := range views {
		game, err := entity.RestoreGame(view)
		if err != nil {
			log.Warn("skipping session snapshot", "key", view.Key, "error", err)
			continue
		}

		if that.restoreOne(view.Key, game) {
			restored++
		}
	}

	log.Info("sessions restored", "count", restored)

	return restored, nil
}

func (that *SessionRegistry) restoreOne(key string, game *entity.Game) bool {
	s := that.acquire(key)
	defer that.release(key, s)

	if s.game != nil {
		return false
	}

	s.game = game

	return true
}

// EvictIdle terminates sessions whose last change is older than ttl and returns how many went.
func (that *SessionRegistry) EvictIdle(ctx context.Context, ttl time.Duration) int {
	deadline := time.Now().Add(-ttl)

	evicted := 0
	for _, key := range that.keys() {
		if that.evictIfIdle(ctx, key, deadline) {
			evicted++
		}
	}

	return evicted
}

func (that *SessionRegistry) evictIfIdle(ctx context.Context, key string, deadline time.Time) bool {
	s := that.acquire(key)
	defer that.release(key, s)

	if s.game == nil || !s.game.UpdatedAt().Before(deadline) {
		return false
	}

	s.game = nil
	that.delete(ctx, key)

	that.logger.Info("idle session evicted", "key", key)

	return true
}

// RunJanitor evicts idle sessions every interval until ctx is done. A zero ttl disables it.
func (that *SessionRegistry) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := that.EvictIdle(ctx, ttl); n > 0 {
				that.logger.Info("janitor pass", "evicted", n)
			}
		}
	}
}

func (that *SessionRegistry) save(ctx context.Context, view entity.SessionView) {
	if that.repo == nil {
		return
	}

	if err := that.repo.Save(ctx, view); err != nil {
		that.logger.Error("failed to mirror session", "key", view.Key, "error", err)
	}
}

func (that *SessionRegistry) delete(ctx context.Context, key string) {
	if that.repo == nil {
		return
	}

	if err := that.repo.Delete(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
		that.logger.Error("failed to delete mirrored session", "key", key, "error", err)
	}
}
