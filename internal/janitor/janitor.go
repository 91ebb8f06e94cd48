// Package janitor removes image files that no project references, such as
// those left behind by a crash between the file write and the record write.
package janitor

import (
	"context"
	"fmt"
	"time"

	"seyon/internal/metrics"
	"seyon/internal/storage"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ImageDir is the directory being swept.
type ImageDir interface {
	List() ([]storage.StoredFile, error)
	Remove(name string) error
}

// ImageReferences reports which image files are in use.
type ImageReferences interface {
	ImageNames(ctx context.Context) ([]string, error)
}

// Janitor deletes unreferenced images once they are older than a grace
// period, so uploads still waiting for their record are left alone.
type Janitor struct {
	images ImageDir
	refs   ImageReferences
	grace  time.Duration
	log    *zap.Logger
	now    func() time.Time

	cron *cron.Cron
}

// New creates a Janitor.
func New(images ImageDir, refs ImageReferences, grace time.Duration, log *zap.Logger) *Janitor {
	return &Janitor{
		images: images,
		refs:   refs,
		grace:  grace,
		log:    log,
		now:    time.Now,
	}
}

// Sweep runs one pass and returns the number of files removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	// Files are listed before references are read: an image whose record
	// lands in between is then either referenced or inside the grace period.
	files, err := j.images.List()
	if err != nil {
		return 0, err
	}
	names, err := j.refs.ImageNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load referenced images: %w", err)
	}

	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	cutoff := j.now().Add(-j.grace)
	removed := 0
	for _, f := range files {
		if _, ok := referenced[f.Name]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := j.images.Remove(f.Name); err != nil {
			j.log.Warn("failed to remove orphan image", zap.String("image", f.Name), zap.Error(err))
			continue
		}
		removed++
		metrics.OrphanImagesRemoved.Inc()
		j.log.Info("removed orphan image", zap.String("image", f.Name), zap.Time("modified", f.ModTime))
	}
	return removed, nil
}

// Start schedules Sweep on a cron expression such as "@every 1h" or "0 3 * * *".
func (j *Janitor) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		removed, err := j.Sweep(context.Background())
		if err != nil {
			j.log.Error("orphan image sweep failed", zap.Error(err))
			return
		}
		j.log.Debug("orphan image sweep finished", zap.Int("removed", removed))
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	j.cron = c
	c.Start()
	j.log.Info("janitor scheduled", zap.String("schedule", schedule), zap.Duration("grace", j.grace))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}
