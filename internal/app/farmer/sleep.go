package farmer

import (
	"context"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/internal/config"
	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

// sleepFor scales a pause by the configured speed:
//
//	Fast:       uniform over [(d/2)*0.5, (d/2)*1.5]
//	Super fast: uniform over [(d/4)*0.5, (d/4)*1.5]
//	Normal:     exactly d
func sleepFor(speed config.Speed, d time.Duration) time.Duration {
	switch speed {
	case config.SpeedSuperFast:
		return uniformDuration(d/8, 3*d/8)
	case config.SpeedFast:
		return uniformDuration(d/4, 3*d/4)
	default:
		return d
	}
}

func uniformDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	spread := utils.RandomRange(0, int((max-min)/time.Millisecond))
	return min + time.Duration(spread)*time.Millisecond
}

// snooze sleeps for d, returning early when the context is cancelled.
func snooze(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
