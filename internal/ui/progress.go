package ui

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// StepBar shows plan execution one backend step at a time
type StepBar struct {
	bar   *progressbar.ProgressBar
	total int
}

// NewStepBar creates a bar for total steps writing to w
func NewStepBar(w io.Writer, total int) *StepBar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &StepBar{bar: bar, total: total}
}

// Start marks step index (1-based) as running
func (s *StepBar) Start(index int, description string) {
	s.bar.Describe(description)
	_ = s.bar.Set(index - 1)
}

// Finish fills the bar
func (s *StepBar) Finish() error {
	return s.bar.Finish()
}

// Total is the number of steps the bar was created for
func (s *StepBar) Total() int {
	return s.total
}
