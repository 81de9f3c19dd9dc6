package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"airquality-gateway/internal/airquality"
)

const (
	// MaxErrors is the number of consecutive failed cycles tolerated. The
	// loop halts once the count goes above it.
	MaxErrors = 5
	// ErrorStep is added to the pause after every failed cycle.
	ErrorStep = 1800 * time.Second
	// IdleInterval is the pause after a published cycle.
	IdleInterval = 1200 * time.Second
	// HaltedInterval spaces the termination notices once halted.
	HaltedInterval = 7200 * time.Second
)

// ErrorState is the loop's error budget. It is passed by value from cycle to
// cycle and never shared.
type ErrorState struct {
	Count int
	Pause time.Duration
}

// Next folds a cycle outcome into s: any error costs one unit of the budget
// and another ErrorStep of pause, success resets both.
func Next(s ErrorState, err error) ErrorState {
	if err == nil {
		return ErrorState{}
	}
	return ErrorState{
		Count: s.Count + 1,
		Pause: s.Pause + ErrorStep,
	}
}

// Halted reports whether the error budget is exhausted.
func (s ErrorState) Halted() bool {
	return s.Count > MaxErrors
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]airquality.Record, error)
}

type Publisher interface {
	Publish(ctx context.Context, payload airquality.Payload) error
}

// Observer receives loop progress. *metrics.Metrics implements it.
type Observer interface {
	CycleStarted()
	CycleFailed(kind string)
	Published()
	ErrorState(count int, pause time.Duration)
	Halted()
}

// Loop forwards readings from one API URL to the broker until its error
// budget runs out.
type Loop struct {
	URL    string
	Serial string

	Fetcher   Fetcher
	Publisher Publisher

	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
	Logger   *slog.Logger
	Observer Observer
}

// Run cycles until ctx is done. Once halted it only logs a termination
// notice every HaltedInterval; leaving that state takes a process restart.
func (l *Loop) Run(ctx context.Context) error {
	l.defaults()

	state := ErrorState{}
	for !state.Halted() {
		l.Logger.Info("starting cycle",
			"error_count", state.Count,
			"max_errors", MaxErrors,
			"pause_minutes", minutes(state.Pause),
		)

		var wait time.Duration
		state, wait = l.Cycle(ctx, state)

		if err := l.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	l.Observer.Halted()
	for {
		l.Logger.Error("max errors exceeded, program has terminated",
			"error_count", state.Count,
			"max_errors", MaxErrors,
		)
		if err := l.Sleep(ctx, HaltedInterval); err != nil {
			return err
		}
	}
}

// Cycle runs one acquisition and delivery pass from state s and returns the
// next state with the pause to take before the following cycle.
func (l *Loop) Cycle(ctx context.Context, s ErrorState) (ErrorState, time.Duration) {
	l.defaults()
	l.Observer.CycleStarted()

	payload, err := l.acquire(ctx)
	if err != nil {
		return l.fail(s, "an error occurred while retrieving and processing data", err)
	}

	if err := l.Publisher.Publish(ctx, payload); err != nil {
		return l.fail(s, "an error occurred while communicating with the broker", err)
	}

	next := Next(s, nil)
	l.Observer.Published()
	l.Observer.ErrorState(next.Count, next.Pause)
	l.Logger.Info("message sent",
		"serial", payload.Serial,
		"record_time", payload.RecordTime,
		"readings", len(payload.Readings),
		"pause_minutes", minutes(IdleInterval),
	)
	if l.Logger.Enabled(ctx, slog.LevelDebug) {
		body, _ := json.Marshal(payload)
		l.Logger.Debug("message body", "payload", string(body))
	}
	return next, IdleInterval
}

func (l *Loop) acquire(ctx context.Context) (airquality.Payload, error) {
	records, err := l.Fetcher.Fetch(ctx, l.URL)
	if err != nil {
		return airquality.Payload{}, err
	}

	readings, err := airquality.Transform(records)
	if err != nil {
		return airquality.Payload{}, err
	}
	l.Logger.Debug("readings extracted", "readings", readings)

	if err := airquality.Validate(readings); err != nil {
		return airquality.Payload{}, fmt.Errorf("%d records from %s: %w", len(records), l.URL, err)
	}

	return airquality.Build(readings, l.Serial, l.Now()), nil
}

func (l *Loop) fail(s ErrorState, msg string, err error) (ErrorState, time.Duration) {
	next := Next(s, err)
	kind := airquality.Kind(err)

	l.Observer.CycleFailed(kind)
	l.Observer.ErrorState(next.Count, next.Pause)
	l.Logger.Warn(msg,
		"kind", kind,
		"error", err,
		"error_count", next.Count,
		"max_errors", MaxErrors,
		"pause_minutes", minutes(next.Pause),
	)
	return next, next.Pause
}

func (l *Loop) defaults() {
	if l.Now == nil {
		l.Now = time.Now
	}
	if l.Sleep == nil {
		l.Sleep = SleepContext
	}
	if l.Logger == nil {
		l.Logger = slog.Default()
	}
	if l.Observer == nil {
		l.Observer = nopObserver{}
	}
}

// SleepContext waits for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func minutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}

type nopObserver struct{}

func (nopObserver) CycleStarted() {}
func (nopObserver) CycleFailed(string) {}
func (nopObserver) Published() {}
func (nopObserver) ErrorState(int, time.Duration) {}
func (nopObserver) Halted() {}
