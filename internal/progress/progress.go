// Package progress provides progress reporting for long-running pipeline
// stages: file ingestion, conversions, and batch uploads.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter is the interface stages report progress through.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Increment()
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress renders a terminal progress bar on stderr.
type CLIProgress struct {
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a new CLI progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

// Start initializes the progress bar with a total count and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update sets the bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Increment advances the bar by one unit.
func (p *CLIProgress) Increment() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message below the bar.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpProgress is a reporter that does nothing, used for quiet or
// non-interactive runs.
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Increment()                            {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
func (p *NoOpProgress) SetDescription(desc string)            {}

// Reader wraps an io.Reader to report bytes read, used for multipart upload
// bodies.
type Reader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewReader creates a progress-reporting reader.
func NewReader(reader io.Reader, reporter Reporter) *Reader {
	return &Reader{reader: reader, reporter: reporter}
}

// Read implements io.Reader, forwarding the running byte count.
func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}
