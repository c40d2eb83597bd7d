package adapters

import (
	"github.com/robfig/cron/v3"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"os"
	"path/filepath"
	"time"
)

// SpoolSweeper deletes staged audio that outlived any run, e.g. after a crash
// between staging and cleanup.
type SpoolSweeper struct {
	logger outbound.LoggerPort
	dir    string
	maxAge time.Duration
	now    func() time.Time
	cron   *cron.Cron
}

func NewSpoolSweeper(dir string, maxAge time.Duration, logger outbound.LoggerPort) *SpoolSweeper {
	return &SpoolSweeper{
		logger: logger,
		dir:    dir,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Sweep removes regular files older than maxAge and returns how many went.
func (s *SpoolSweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.ErrorWithFields(err, "Failed to remove orphaned audio", map[string]interface{}{"path": path})
			continue
		}
		removed++
	}
	return removed, nil
}

// Start runs Sweep on the given cron schedule until Stop is called.
func (s *SpoolSweeper) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		removed, err := s.Sweep()
		if err != nil {
			s.logger.ErrorWithFields(err, "Spool sweep failed", map[string]interface{}{"dir": s.dir})
			return
		}
		if removed > 0 {
			s.logger.InfoWithFields("Removed orphaned audio", map[string]interface{}{
				"dir":     s.dir,
				"removed": removed,
			})
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	return nil
}

func (s *SpoolSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
