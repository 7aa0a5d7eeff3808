package main

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// barSink renders sync progress as a terminal progress bar. The bar
// is created lazily because the item total is only known once the
// sync pass has started.
type barSink struct {
	label string
	bar   *progressbar.ProgressBar
}

func newBarSink(label string) *barSink {
	return &barSink{label: label}
}

func (b *barSink) SetTotal(total int) {
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(b.label),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *barSink) Add(n int) {
	if b.bar != nil {
		_ = b.bar.Add(n)
	}
}
