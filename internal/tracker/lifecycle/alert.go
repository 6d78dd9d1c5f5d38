package lifecycle

import "log/slog"

// Vibration pattern and audio handle shared by every alert signal.
var (
	alertVibrationPattern = []int{500, 250, 500, 250, 1000}
	alertAudioHandle      = "tracking_alert"
)

// alerter drives the repeating audio + vibration + notification signal
// raised when an actionable countdown expires. It is ticked by the
// engine loop, so it lives and dies with the stage that started it.
type alerter struct {
	notifier  Notifier
	log       *slog.Logger
	interval  int
	active    bool
	sinceLast int
}

func newAlerter(notifier Notifier, interval int, log *slog.Logger) *alerter {
	if interval <= 0 {
		interval = 10
	}
	return &alerter{notifier: notifier, log: log, interval: interval}
}

// start raises the signal. Re-starting while already active is a no-op.
func (a *alerter) start(title, body string) {
	if a.active {
		return
	}
	a.active = true
	a.sinceLast = 0
	a.notifier.StartAudioLoop(alertAudioHandle)
	a.notifier.Vibrate(alertVibrationPattern)
	a.notifier.Push(title, body, "tracking_alerts")
	a.log.Info("alert started", slog.String("title", title))
}

// stop tears the signal down from any resolution path. Idempotent.
func (a *alerter) stop() {
	if !a.active {
		return
	}
	a.active = false
	a.sinceLast = 0
	a.notifier.StopAudioLoop(alertAudioHandle)
	a.log.Info("alert stopped")
}

// tick repeats the vibration on the configured interval while active.
func (a *alerter) tick() {
	if !a.active {
		return
	}
	a.sinceLast++
	if a.sinceLast >= a.interval {
		a.sinceLast = 0
		a.notifier.Vibrate(alertVibrationPattern)
	}
}
