package gamedata

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"whackgoblin/internal/analytics"
	"whackgoblin/internal/board"
	"whackgoblin/internal/events"
	"whackgoblin/internal/metrics"
	"whackgoblin/internal/targets"
	"whackgoblin/internal/timers"
)

type Phase string

const (
	PhaseIdle    = Phase("idle")
	PhasePlaying = Phase("playing")
	PhasePaused  = Phase("paused")
	PhaseOver    = Phase("over")
)

type Mode string

const (
	// ModeWhack spawns a goblin that has to be clicked before it expires.
	ModeWhack = Mode("whack")
	// ModeRoam moves a gnome around the board on a fixed interval.
	ModeRoam = Mode("roam")
)

// DOM element ids and status classes.
const (
	IDBoard    = "gameBoard"
	IDScore    = "score"
	IDMissed   = "missed"
	IDStatus   = "status"
	IDStart    = "startBtn"
	IDPause    = "pauseBtn"
	IDReset    = "resetBtn"
	IDPosition = "position"
	IDMoves    = "moves"

	ClassUpdated  = "updated"
	ClassPlaying  = "playing"
	ClassPaused   = "paused"
	ClassGameOver = "game-over"
)

// Keyboard codes.
const (
	KeySpace = "Space"
	KeyReset = "KeyR"
)

type Config struct {
	Mode           Mode
	GridSize       int
	SpawnInterval  time.Duration
	TargetLifetime time.Duration
	RetryDelay     time.Duration
	RoamInterval   time.Duration
	MaxMissed      int
	MissPenalty    int
	AvoidRepeat    bool
	FlashDuration  time.Duration
	AlertDelay     time.Duration
	// Seed fixes target placement. Zero seeds from the clock.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		Mode:           ModeWhack,
		GridSize:       board.DefaultSize,
		SpawnInterval:  1000 * time.Millisecond,
		TargetLifetime: targets.DefaultLifetime,
		RetryDelay:     100 * time.Millisecond,
		RoamInterval:   2000 * time.Millisecond,
		MaxMissed:      5,
		MissPenalty:    1,
		AvoidRepeat:    true,
		FlashDuration:  300 * time.Millisecond,
		AlertDelay:     500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode != ModeRoam {
		c.Mode = ModeWhack
	}
	if c.GridSize < 1 || c.GridSize > board.MaxSize {
		c.GridSize = d.GridSize
	}
	if c.SpawnInterval <= 0 {
		c.SpawnInterval = d.SpawnInterval
	}
	if c.TargetLifetime <= 0 {
		c.TargetLifetime = d.TargetLifetime
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.RoamInterval <= 0 {
		c.RoamInterval = d.RoamInterval
	}
	if c.MaxMissed < 1 {
		c.MaxMissed = d.MaxMissed
	}
	if c.MissPenalty < 0 {
		c.MissPenalty = 0
	}
	return c
}

type CellData struct {
	Index    int      `json:"index"`
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Occupied bool     `json:"occupied"`
	Classes  []string `json:"classes"`
}

// GameData is a point-in-time copy of the game for rendering.
type GameData struct {
	Mode          Mode               `json:"mode"`
	Phase         Phase              `json:"phase"`
	Status        string             `json:"status"`
	StatusClass   string             `json:"statusClass"`
	Score         int                `json:"score"`
	Missed        int                `json:"missed"`
	MaxMissed     int                `json:"maxMissed"`
	MissedText    string             `json:"missedText"`
	BoardSize     int                `json:"boardSize"`
	Cells         []CellData         `json:"cells"`
	Target        int                `json:"target"`
	Position      string             `json:"position,omitempty"`
	Moves         int                `json:"moves"`
	StartDisabled bool               `json:"startDisabled"`
	PauseDisabled bool               `json:"pauseDisabled"`
	Summary       *analytics.Summary `json:"summary,omitempty"`
}

// Game owns one board, one target and the timers that drive them. Every
// mutation, including timer callbacks, runs under mu.
type Game struct {
	mu     sync.Mutex
	cfg    Config
	sched  timers.Scheduler
	Events *events.Bus
	rng    *rand.Rand

	board  *board.Board
	target *targets.Target

	phase      Phase
	score      int
	missed     int
	stats      analytics.GameStats
	summary    *analytics.Summary
	autoPaused bool
	closed     bool

	// epoch changes on every transition that invalidates the spawn timers.
	epoch      int
	spawnTimer timers.Timer
	retryTimer timers.Timer
}

func NewGame(cfg Config, sched timers.Scheduler, bus *events.Bus) *Game {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		cfg:    cfg,
		sched:  sched,
		Events: bus,
		rng:    rand.New(rand.NewSource(seed)),
		phase:  PhaseIdle,
	}
	g.newBoard()
	return g
}

func CellID(i int) string {
	return fmt.Sprintf("cell-%d", i)
}

func (g *Game) Config() Config {
	return g.cfg
}

func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Game) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score
}

func (g *Game) Missed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.missed
}

// Start begins or resumes play. It is a no-op while playing or after game over.
func (g *Game) Start() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoPaused = false
	return g.startLocked()
}

// Pause stops the spawn timer and hides the target.
func (g *Game) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoPaused = false
	return g.pauseLocked()
}

// Toggle pauses a running game and starts any other.
func (g *Game) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoPaused = false
	if g.phase == PhasePlaying {
		return g.pauseLocked()
	}
	return g.startLocked()
}

// Reset returns to an idle game on a fresh, empty board.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.stopTimers()
	g.target.Hide()

	g.score = 0
	g.missed = 0
	g.summary = nil
	g.autoPaused = false
	g.phase = PhaseIdle
	g.newBoard()

	g.publish(events.Patch{Type: events.TypeBoard, ID: IDBoard, Size: g.board.Size(), Labels: g.board.Labels(g.labelStyle())})
	g.publish(events.Patch{Type: events.TypeClass, ID: IDStatus, Class: ClassGameOver, On: false})
	g.updateUI()
	g.updatePosition()
}

// Key handles a keyboard code: Space toggles play, KeyR resets.
func (g *Game) Key(code string) bool {
	switch code {
	case KeySpace:
		g.Toggle()
		return true
	case KeyReset:
		g.Reset()
		return true
	}
	return false
}

// Click handles a click on cell i. Clicks outside play are ignored.
func (g *Game) Click(i int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.phase != PhasePlaying || g.board.Cell(i) == nil {
		return false
	}
	if g.target.Visible() && g.target.Cell() == i {
		g.hitLocked(i)
	} else {
		g.missClickLocked()
	}
	return true
}

// SetVisible pauses a running game when the host is hidden and resumes it
// when it is shown again, unless the player changed state in between.
func (g *Game) SetVisible(visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !visible {
		if g.phase == PhasePlaying {
			g.pauseLocked()
			g.autoPaused = true
		}
		return
	}
	if g.autoPaused {
		g.autoPaused = false
		if g.phase == PhasePaused {
			g.startLocked()
		}
	}
}

// Close cancels every timer and closes the event bus. The game is unusable afterwards.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.stopTimers()
	g.target.Hide()
	g.board.ClearHighlights()
	g.closed = true
	if g.Events != nil {
		close(g.Events.Patches)
	}
}

func (g *Game) Snapshot() GameData {
	g.mu.Lock()
	defer g.mu.Unlock()

	style := g.labelStyle()
	cells := make([]CellData, 0, g.board.Len())
	for _, c := range g.board.Cells() {
		cells = append(cells, CellData{
			Index:    c.Index,
			ID:       CellID(c.Index),
			Label:    g.board.Label(c.Index, style),
			Occupied: c.Occupied,
			Classes:  c.Classes(),
		})
	}
	data := GameData{
		Mode:          g.cfg.Mode,
		Phase:         g.phase,
		Status:        g.statusText(),
		StatusClass:   g.statusClass(),
		Score:         g.score,
		Missed:        g.missed,
		MaxMissed:     g.cfg.MaxMissed,
		MissedText:    g.missedText(),
		BoardSize:     g.board.Size(),
		Cells:         cells,
		Target:        g.target.Cell(),
		Position:      g.board.Label(g.target.Cell(), style),
		Moves:         g.movesShown(),
		StartDisabled: g.phase == PhasePlaying || g.phase == PhaseOver,
		PauseDisabled: g.phase != PhasePlaying,
	}
	if g.summary != nil {
		s := *g.summary
		data.Summary = &s
	}
	return data
}

func (g *Game) startLocked() bool {
	if g.closed || g.phase == PhasePlaying || g.phase == PhaseOver {
		return false
	}
	g.phase = PhasePlaying
	g.epoch++
	g.updateUI()

	if g.cfg.Mode == ModeRoam {
		if !g.target.Visible() {
			g.moveLocked()
		}
		g.armTick(g.cfg.RoamInterval)
		return true
	}
	g.armTick(g.cfg.SpawnInterval)
	return true
}

func (g *Game) pauseLocked() bool {
	if g.phase != PhasePlaying {
		return false
	}
	g.stopTimers()
	g.phase = PhasePaused
	g.updateUI()
	// A paused gnome stays where it is; only its movement stops.
	if g.cfg.Mode != ModeRoam {
		g.hideLocked()
	}
	return true
}

func (g *Game) armTick(d time.Duration) {
	epoch := g.epoch
	g.spawnTimer = g.sched.AfterFunc(d, func() { g.onTick(epoch) })
}

func (g *Game) onTick(epoch int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || epoch != g.epoch || g.phase != PhasePlaying {
		return
	}
	g.spawnTimer = nil

	if g.cfg.Mode == ModeRoam {
		g.moveLocked()
		g.armTick(g.cfg.RoamInterval)
		return
	}

	if g.missed >= g.cfg.MaxMissed {
		g.gameOverLocked()
		return
	}
	if !g.showLocked() {
		// The previous goblin is still up: it counts as missed and a new
		// one appears shortly after.
		if g.target.Visible() {
			g.expireLocked()
			if g.phase != PhasePlaying {
				return
			}
		}
		g.retryTimer = g.sched.AfterFunc(g.cfg.RetryDelay, func() { g.onRetry(epoch) })
	}
	g.armTick(g.cfg.SpawnInterval)
}

func (g *Game) onRetry(epoch int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || epoch != g.epoch || g.phase != PhasePlaying {
		return
	}
	g.retryTimer = nil
	g.showLocked()
}

func (g *Game) onExpire(tg *targets.Target, gen int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || tg != g.target || g.phase != PhasePlaying {
		return
	}
	cell := tg.Cell()
	if !tg.Expire(gen) {
		return
	}
	g.publishCell(cell, false)
	g.missLocked()
}

func (g *Game) expireLocked() {
	cell := g.target.Cell()
	if !g.target.Expire(g.target.Generation()) {
		return
	}
	g.publishCell(cell, false)
	g.missLocked()
}

func (g *Game) showLocked() bool {
	if !g.target.Show() {
		return false
	}
	g.stats.Spawned++
	metrics.TargetsShown.Inc()
	g.publishCell(g.target.Cell(), true)
	return true
}

func (g *Game) moveLocked() {
	prev := g.target.Cell()
	next, ok := g.target.Move()
	if !ok {
		return
	}
	if prev != targets.NoCell {
		g.publishCell(prev, false)
		g.publish(events.Patch{Type: events.TypeClass, ID: CellID(prev), Class: board.ClassHighlight, On: false})
	}
	g.board.Highlight(next)
	g.stats.Spawned++
	metrics.TargetsShown.Inc()
	g.publishCell(next, true)
	g.publish(events.Patch{Type: events.TypeClass, ID: CellID(next), Class: board.ClassHighlight, On: true})
	g.updatePosition()
}

func (g *Game) hideLocked() {
	cell := g.target.Cell()
	if !g.target.Visible() {
		return
	}
	g.target.Hide()
	g.publishCell(cell, false)
}

func (g *Game) hitLocked(i int) {
	reaction := int(g.sched.Now().Sub(g.target.ShownAt()).Milliseconds())
	if g.cfg.Mode == ModeRoam {
		// The gnome jumps away while still visible so it never lands on
		// the cell that was just hit.
		if !g.target.Visible() {
			return
		}
		g.moveLocked()
	} else {
		if !g.target.Hit() {
			return
		}
		g.publishCell(i, false)
	}
	g.score++
	g.stats.Hits++
	g.stats.Reactions = append(g.stats.Reactions, reaction)
	metrics.Hits.Inc()
	metrics.Reaction.Observe(float64(reaction))

	g.publish(events.Patch{Type: events.TypeFlash, ID: CellID(i), Class: board.ClassHit, Ms: g.flashMs()})
	g.updateScore()
}

func (g *Game) missClickLocked() {
	g.stats.MissClicks++
	metrics.MissClicks.Inc()
	if g.score == 0 || g.cfg.MissPenalty == 0 {
		return
	}
	g.score -= g.cfg.MissPenalty
	if g.score < 0 {
		g.score = 0
	}
	g.updateScore()
}

func (g *Game) missLocked() {
	metrics.Expired.Inc()
	if g.missed < g.cfg.MaxMissed {
		g.missed++
	}
	g.updateMissed()
	if g.missed >= g.cfg.MaxMissed {
		g.gameOverLocked()
	}
}

func (g *Game) gameOverLocked() {
	if g.phase == PhaseOver {
		return
	}
	g.stopTimers()
	g.phase = PhaseOver
	g.hideLocked()

	g.stats.Score = g.score
	g.stats.Missed = g.missed
	g.stats.MaxMissed = g.cfg.MaxMissed
	summary := analytics.Summarize(g.stats)
	g.summary = &summary
	metrics.GamesOver.Inc()

	g.updateUI()
	g.publish(events.Patch{Type: events.TypeClass, ID: IDStatus, Class: ClassGameOver, On: true})
	g.publish(events.Patch{Type: events.TypeAlert, Text: summary.Text(), Ms: int(g.cfg.AlertDelay.Milliseconds())})
}

func (g *Game) stopTimers() {
	g.epoch++
	if g.spawnTimer != nil {
		g.spawnTimer.Stop()
		g.spawnTimer = nil
	}
	if g.retryTimer != nil {
		g.retryTimer.Stop()
		g.retryTimer = nil
	}
}

func (g *Game) newBoard() {
	g.board = board.New(g.cfg.GridSize)
	g.stats = analytics.GameStats{MaxMissed: g.cfg.MaxMissed}

	class := board.ClassGoblin
	lifetime := g.cfg.TargetLifetime
	if g.cfg.Mode == ModeRoam {
		class = board.ClassActive
		lifetime = 0
	}
	var tg *targets.Target
	tg = targets.New(g.board, g.sched, targets.Options{
		Lifetime:    lifetime,
		AvoidRepeat: g.cfg.AvoidRepeat,
		Class:       class,
		Rand:        g.rng,
		OnExpire:    func(gen int) { g.onExpire(tg, gen) },
	})
	g.target = tg
}

func (g *Game) labelStyle() board.LabelStyle {
	if g.cfg.Mode == ModeRoam {
		return board.LabelLetterRow
	}
	return board.LabelRowCol
}

func (g *Game) occupantClass() string {
	if g.cfg.Mode == ModeRoam {
		return board.ClassActive
	}
	return board.ClassGoblin
}

func (g *Game) statusText() string {
	switch g.phase {
	case PhasePlaying:
		return "Playing"
	case PhasePaused:
		return "Paused"
	case PhaseOver:
		return "Game over!"
	}
	return "Ready"
}

// statusClass is the class the status element carries for the current phase.
func (g *Game) statusClass() string {
	switch g.phase {
	case PhasePlaying:
		return ClassPlaying
	case PhasePaused:
		return ClassPaused
	case PhaseOver:
		return ClassGameOver
	}
	return ""
}

func (g *Game) missedText() string {
	return fmt.Sprintf("%d/%d", g.missed, g.cfg.MaxMissed)
}

func (g *Game) movesShown() int {
	if m := g.target.Moves() - 1; m > 0 {
		return m
	}
	return 0
}

func (g *Game) flashMs() int {
	return int(g.cfg.FlashDuration.Milliseconds())
}

func (g *Game) publish(p events.Patch) {
	if g.closed || g.Events == nil {
		return
	}
	g.Events.Patches <- p
}

func (g *Game) publishCell(i int, on bool) {
	g.publish(events.Patch{Type: events.TypeClass, ID: CellID(i), Class: g.occupantClass(), On: on})
}

func (g *Game) updateScore() {
	g.publish(events.Patch{Type: events.TypeText, ID: IDScore, Text: fmt.Sprint(g.score)})
	g.publish(events.Patch{Type: events.TypeFlash, ID: IDScore, Class: ClassUpdated, Ms: g.flashMs()})
}

func (g *Game) updateMissed() {
	g.publish(events.Patch{Type: events.TypeText, ID: IDMissed, Text: g.missedText()})
	g.publish(events.Patch{Type: events.TypeFlash, ID: IDMissed, Class: ClassUpdated, Ms: g.flashMs()})
}

func (g *Game) updatePosition() {
	if g.cfg.Mode != ModeRoam {
		return
	}
	g.publish(events.Patch{Type: events.TypeText, ID: IDPosition, Text: g.board.Label(g.target.Cell(), board.LabelLetterRow)})
	g.publish(events.Patch{Type: events.TypeText, ID: IDMoves, Text: fmt.Sprint(g.movesShown())})
}

func (g *Game) updateUI() {
	playing := g.phase == PhasePlaying
	g.publish(events.Patch{Type: events.TypeText, ID: IDStatus, Text: g.statusText()})
	g.publish(events.Patch{Type: events.TypeClass, ID: IDStatus, Class: ClassPlaying, On: playing})
	g.publish(events.Patch{Type: events.TypeClass, ID: IDStatus, Class: ClassPaused, On: g.phase == PhasePaused})
	g.publish(events.Patch{Type: events.TypeDisabled, ID: IDStart, On: playing || g.phase == PhaseOver})
	g.publish(events.Patch{Type: events.TypeDisabled, ID: IDPause, On: !playing})
	g.updateScore()
	g.updateMissed()
}
