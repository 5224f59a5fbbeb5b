package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"whackgoblin/internal/board"
	"whackgoblin/internal/events"
	"whackgoblin/internal/gamedata"
	"whackgoblin/internal/sound"
)

const (
	cellW   = 7
	cellH   = 3
	originX = 2
	originY = 3
	frame   = 50 * time.Millisecond
)

// cellKeys maps cells to keys in board order. q and r are reserved.
const cellKeys = "123456789abcdefghijklmnopstuvwxyz"

var (
	styleDefault = tcell.StyleDefault
	styleCell    = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	styleTarget  = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorYellow).Bold(true)
	styleHit     = tcell.StyleDefault.Background(tcell.ColorGold).Foreground(tcell.ColorBlack).Bold(true)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleOver    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHint    = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// App renders one game on a tcell screen and feeds input back into it.
type App struct {
	screen tcell.Screen
	game   *gamedata.Game
	player *sound.Player
	now    func() time.Time

	mu         sync.Mutex
	flashCell  int
	flashUntil time.Time
	lastMissed string
}

func New(screen tcell.Screen, game *gamedata.Game, player *sound.Player) *App {
	return &App{
		screen:    screen,
		game:      game,
		player:    player,
		now:       time.Now,
		flashCell: -1,
	}
}

// Run draws and handles input until the player quits.
func (a *App) Run() {
	a.screen.EnableMouse()
	a.screen.EnableFocus()
	a.screen.HideCursor()

	go a.drain()

	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	a.draw()
	for {
		select {
		case ev, ok := <-eventChan:
			if !ok || !a.handleEvent(ev) {
				return
			}
			a.draw()
		case <-ticker.C:
			a.draw()
		}
	}
}

// drain consumes the game's patches until the bus closes. It must never
// call back into the game, which may be blocked publishing.
func (a *App) drain() {
	if a.game.Events == nil {
		return
	}
	for p := range a.game.Events.Patches {
		a.apply(p)
	}
}

func (a *App) apply(p events.Patch) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case p.Type == events.TypeFlash && p.Class == board.ClassHit:
		var i int
		if _, err := fmt.Sscanf(p.ID, "cell-%d", &i); err == nil {
			a.flashCell = i
			a.flashUntil = a.now().Add(time.Duration(p.Ms) * time.Millisecond)
		}
		a.cue(sound.CueHit)
	case p.Type == events.TypeText && p.ID == gamedata.IDMissed:
		if p.Text != a.lastMissed && !strings.HasPrefix(p.Text, "0/") {
			a.cue(sound.CueMiss)
		}
		a.lastMissed = p.Text
	case p.Type == events.TypeAlert:
		a.cue(sound.CueGameOver)
	}
}

func (a *App) cue(c sound.Cue) {
	if a.player != nil {
		a.player.Play(c)
	}
}

// handleEvent applies one terminal event. It returns false to quit.
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch r := ev.Rune(); r {
			case 'q':
				return false
			case ' ':
				a.game.Key(gamedata.KeySpace)
			case 'r', 'R':
				a.game.Key(gamedata.KeyReset)
			default:
				if i := strings.IndexRune(cellKeys, r); i >= 0 {
					a.game.Click(i)
				}
			}
		}
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			x, y := ev.Position()
			if i, ok := a.cellAt(x, y); ok {
				a.game.Click(i)
			}
		}
	case *tcell.EventFocus:
		a.game.SetVisible(ev.Focused)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

// cellAt maps screen coordinates to a board index.
func (a *App) cellAt(x, y int) (int, bool) {
	size := a.game.Config().GridSize
	if x < originX || y < originY {
		return 0, false
	}
	col := (x - originX) / cellW
	row := (y - originY) / cellH
	if col >= size || row >= size {
		return 0, false
	}
	// gutter between cells
	if (x-originX)%cellW == cellW-1 {
		return 0, false
	}
	return row*size + col, true
}

func (a *App) draw() {
	data := a.game.Snapshot()

	a.mu.Lock()
	flash := -1
	if a.now().Before(a.flashUntil) {
		flash = a.flashCell
	}
	a.mu.Unlock()

	a.screen.Clear()

	title := "WHACK-A-GOBLIN"
	if data.Mode == gamedata.ModeRoam {
		title = "CATCH THE GNOME"
	}
	a.text(originX, 0, title, styleStatus)

	statusStyle := styleStatus
	if data.Phase == gamedata.PhaseOver {
		statusStyle = styleOver
	}
	hud := fmt.Sprintf("Score: %d   Missed: %s", data.Score, data.MissedText)
	if data.Mode == gamedata.ModeRoam {
		hud = fmt.Sprintf("Score: %d   Position: %s   Moves: %d", data.Score, data.Position, data.Moves)
	}
	a.text(originX, 1, hud, styleDefault)
	a.text(originX+len(hud)+3, 1, data.Status, statusStyle)

	for _, c := range data.Cells {
		a.drawCell(c, data, c.Index == flash)
	}

	bottom := originY + data.BoardSize*cellH + 1
	a.text(originX, bottom, "space: play/pause  r: reset  q: quit  keys/mouse: whack", styleHint)

	if data.Summary != nil {
		for i, line := range strings.Split(data.Summary.Text(), "\n") {
			a.text(originX, bottom+2+i, line, styleOver)
		}
	}

	a.screen.Show()
}

func (a *App) drawCell(c gamedata.CellData, data gamedata.GameData, flashing bool) {
	row, col := c.Index/data.BoardSize, c.Index%data.BoardSize
	x0 := originX + col*cellW
	y0 := originY + row*cellH

	style := styleCell
	body := ""
	switch {
	case flashing:
		style = styleHit
		body = "*POW*"
	case c.Occupied && data.Mode == gamedata.ModeRoam:
		style = styleTarget
		body = "GNOME"
	case c.Occupied:
		style = styleTarget
		body = "GOBLN"
	}

	for dy := 0; dy < cellH-1; dy++ {
		for dx := 0; dx < cellW-1; dx++ {
			a.screen.SetContent(x0+dx, y0+dy, ' ', nil, style)
		}
	}
	if c.Index < len(cellKeys) {
		a.screen.SetContent(x0, y0, rune(cellKeys[c.Index]), nil, style.Dim(true))
	}
	if body != "" {
		a.text(x0, y0+1, body, style)
	} else {
		a.text(x0+1, y0+1, c.Label, style)
	}
}

func (a *App) text(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		a.screen.SetContent(x+i, y, r, nil, style)
	}
}
