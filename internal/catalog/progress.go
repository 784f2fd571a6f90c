package catalog

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Bioxydyn/project-archiver/internal/logging"
)

// Progress accumulates scan counters and periodically logs them. Large trees
// take hours to walk; one line every interval keeps operators informed
// without flooding the log.
type Progress struct {
	interval    time.Duration
	lastLog     time.Time
	files       int64
	directories int64
	bytes       int64
}

// NewProgress returns a reporter that logs at most once per interval.
func NewProgress(interval time.Duration) *Progress {
	return &Progress{interval: interval, lastLog: time.Now()}
}

// AddFile records one scanned file.
func (p *Progress) AddFile(size int64) {
	p.files++
	p.bytes += size
	p.maybeLog()
}

// AddDirectory records one scanned directory.
func (p *Progress) AddDirectory() {
	p.directories++
	p.maybeLog()
}

func (p *Progress) maybeLog() {
	if p.interval <= 0 || time.Since(p.lastLog) < p.interval {
		return
	}
	p.lastLog = time.Now()
	logging.Info("scan progress",
		zap.Int64("files", p.files),
		zap.Int64("directories", p.directories),
		zap.String("size", strings.TrimSpace(BytesToHuman(p.bytes))))
}

// LogSummary logs the final scan totals.
func (p *Progress) LogSummary() {
	logging.Info("scan complete",
		zap.Int64("files", p.files),
		zap.Int64("directories", p.directories),
		zap.String("size", strings.TrimSpace(BytesToHuman(p.bytes))))
}
