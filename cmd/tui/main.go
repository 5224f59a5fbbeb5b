package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"

	"whackgoblin/internal/config"
	"whackgoblin/internal/events"
	"whackgoblin/internal/gamedata"
	"whackgoblin/internal/sound"
	"whackgoblin/internal/timers"
	"whackgoblin/internal/tui"
)

func main() {
	appCfg := config.Load()

	var player *sound.Player
	if appCfg.Sound {
		player = sound.NewPlayer()
		if err := player.Init(); err != nil {
			// Non-fatal, the game runs without sound
			log.Printf("[TUI] Audio initialization failed: %v\n", err)
		}
		defer player.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}

	game := gamedata.NewGame(appCfg.Game(), timers.Real(), events.NewBus())
	tui.New(screen, game, player).Run()

	game.Close()
	screen.Fini()
}
