package engine

import "github.com/leonelquinteros/gotext"

// ConfigureLocale loads translations for player-facing messages from
// <dir>/<lang>/LC_MESSAGES/default.po. Without it the English text is used.
func ConfigureLocale(dir, lang string) {
	if dir == "" || lang == "" {
		return
	}
	gotext.Configure(dir, lang, "default")
}

func msgWelcome(config *LevelConfig, people, buses int) string {
	if config.Messages.Welcome != "" {
		return config.Messages.Welcome
	}
	return gotext.Get("Welcome! Route %d passengers onto %d buses.", people, buses)
}

func msgVictory(config *LevelConfig, boarded int) string {
	if config.Messages.Victory != "" {
		return config.Messages.Victory
	}
	return gotext.Get("Level complete! %d passengers processed.", boarded)
}

func msgWaitingFull(config *LevelConfig) string {
	if config.Messages.WaitingFull != "" {
		return config.Messages.WaitingFull
	}
	return gotext.Get("The waiting area is full! Game over.")
}

func msgStuck(config *LevelConfig) string {
	if config.Messages.Stuck != "" {
		return config.Messages.Stuck
	}
	return gotext.Get("Nobody can reach a bus anymore. Game over.")
}

func msgNoBus(config *LevelConfig, color Color) string {
	if config.Messages.Stuck != "" {
		return config.Messages.Stuck
	}
	return gotext.Get("No %s bus is left for the waiting passengers. Game over.", color.String())
}

func msgTimerExpired(config *LevelConfig) string {
	if config.Messages.TimerExpired != "" {
		return config.Messages.TimerExpired
	}
	return gotext.Get("Time is up! Game over.")
}

func msgRejected(reason string) string {
	switch reason {
	case RejectGameOver:
		return gotext.Get("The level is over.")
	case RejectUnknown:
		return gotext.Get("There is no such passenger.")
	case RejectNotOnGrid:
		return gotext.Get("That passenger already left the grid.")
	case RejectNotPlayArea:
		return gotext.Get("That passenger is outside the play area.")
	case RejectNotPlayable, RejectNoPath:
		return gotext.Get("That passenger cannot reach the exit.")
	case RejectNotInTransit:
		return gotext.Get("That passenger is not moving.")
	}
	return gotext.Get("Selection rejected.")
}

func msgBoarded(color Color, bus *Bus) string {
	return gotext.Get("A %s passenger boarded (%d/%d).", color.String(), bus.Occupancy, bus.Capacity)
}

func msgWaiting(color Color, w *WaitingArea) string {
	return gotext.Get("A %s passenger is waiting (%d/%d).", color.String(), w.OccupiedCount(), w.Capacity())
}

func msgRedirected(color Color) string {
	return gotext.Get("The bus filled up, the %s passenger goes to the waiting area.", color.String())
}

func msgBusArrived(bus *Bus) string {
	return gotext.Get("A %s bus arrived with %d seats.", bus.Color.String(), bus.Capacity)
}

func msgBusDeparted(bus *Bus) string {
	return gotext.Get("The %s bus departed.", bus.Color.String())
}
