package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// run is the only consumer of wake and therefore the only goroutine that
// ever calls compute. A submission that lands while the queue is being
// drained either gets picked up by that drain or leaves a token in wake.
func (c *Coordinator) run() {
	defer c.wg.Done()
	var sweep <-chan time.Time
	if c.sweepInterval > 0 {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-sweep:
			c.sweepCaches()
		case <-c.wake:
			c.drain()
			if n := c.reg.prune(c.retention); n > 0 {
				c.log.Debug().Int("evicted", n).Msg("Pruned finished requests")
			}
		}
	}
}

// sweepCaches drops expired entries that were never read again.
func (c *Coordinator) sweepCaches() {
	n := c.store.Artifacts.SweepExpired() +
		c.store.RawMaterial.SweepExpired() +
		c.store.Metadata.SweepExpired()
	if n > 0 {
		c.log.Debug().Int("evicted", n).Msg("Swept expired cache entries")
	}
}

func (c *Coordinator) drain() {
	for c.ctx.Err() == nil {
		rec, skipped, ok := c.reg.next()
		if skipped > 0 {
			c.log.Debug().Int("skipped", skipped).Msg("Skipped finished requests in queue")
		}
		if !ok {
			return
		}
		c.process(rec)
	}
}

func (c *Coordinator) process(rec RequestRecord) {
	log := c.log.With().Str("id", rec.ID).Str("key", rec.ResourceKey).Logger()
	log.Info().Str("label", rec.Label).Msg("Processing request")

	start := time.Now()
	result, err := c.invoke(rec)
	if err != nil {
		c.reg.fail(rec.ID, err.Error(), c.now())
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Request failed")
		return
	}

	// The cache is filled before the record turns terminal so a submit in
	// between finds either the active record or the cached artifact.
	published := c.reg.complete(rec.ID, result, c.now(), func() {
		c.store.Artifacts.Set(rec.ResourceKey, result)
	})
	log.Info().Dur("duration", time.Since(start)).Int("bytes", len(result)).Bool("published", published).Msg("Request completed")

	if published && c.sink != nil {
		c.sink(rec.ResourceKey, result)
	}
}

// invoke runs compute, turning panics and timeouts into errors.
func (c *Coordinator) invoke(rec RequestRecord) (result string, err error) {
	ctx := context.Background()
	if c.computeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.computeTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compute panicked: %v", r)
		}
	}()

	result, err = c.compute(ctx, rec.ResourceKey, rec.Label)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return "", fmt.Errorf("compute timed out after %s: %w", c.computeTimeout, err)
	}
	return result, err
}
