package session

import (
	"sync"

	"github.com/rbright/lingua/internal/config"
)

// Rewards is the gamification capability the controller is given.
type Rewards interface {
	AddXP(amount int) int
	CurrentStreak() int
	// RecordTurn extends the streak on success and resets it on failure.
	RecordTurn(success bool) int
	TotalXP() int
}

// VoicePreferences are the user's voice practice settings.
type VoicePreferences interface {
	AutoPlay() bool
}

// Tally is an in-memory Rewards for one process lifetime.
type Tally struct {
	mu     sync.Mutex
	xp     int
	streak int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{}
}

func (t *Tally) AddXP(amount int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount > 0 {
		t.xp += amount
	}
	return t.xp
}

func (t *Tally) CurrentStreak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streak
}

func (t *Tally) RecordTurn(success bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.streak++
	} else {
		t.streak = 0
	}
	return t.streak
}

func (t *Tally) TotalXP() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.xp
}

// StaticPreferences serves fixed preferences.
type StaticPreferences struct {
	AutoPlayEnabled bool
}

func (p StaticPreferences) AutoPlay() bool { return p.AutoPlayEnabled }

// PreferencesFromConfig maps playback config onto VoicePreferences.
func PreferencesFromConfig(cfg config.PlaybackConfig) StaticPreferences {
	return StaticPreferences{AutoPlayEnabled: cfg.Enable && cfg.AutoPlay}
}
