package cli

import (
	"time"

	"github.com/schollz/progressbar/v3"
)

// spinner wraps an indeterminate progress bar for one blocking call,
// grounded on project-cortex's CLIProgressReporter bars but simplified
// to spinner form: engine.Ingest doesn't expose per-file callbacks the
// way project-cortex's processor does, so there's no running count to
// drive a determinate bar against.
type spinner struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

func newSpinner(quiet bool, description string) *spinner {
	s := &spinner{quiet: quiet}
	if !quiet {
		s.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
	}
	return s
}

// run executes fn while animating the spinner in the background,
// stopping it once fn returns.
func (s *spinner) run(fn func() error) error {
	if s.quiet || s.bar == nil {
		return fn()
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = s.bar.Add(1)
			}
		}
	}()
	err := fn()
	close(done)
	_ = s.bar.Finish()
	return err
}
