package task

import "time"

// janitor periodically evicts terminal tasks older than the retention window
func (q *Queue) janitor() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			return
		case now := <-ticker.C:
			if n := q.sweep(now); n > 0 {
				q.logger.Info("evicted expired tasks",
					"count", n,
					"retention", q.config.Retention)
			}
		}
	}
}

// sweep removes completed tasks whose completed_at is older than the
// retention window as of now. Evicted ids are never reissued.
func (q *Queue) sweep(now time.Time) int {
	if q.config.Retention <= 0 {
		return 0
	}
	cutoff := now.Add(-q.config.Retention)

	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := 0
	for id, t := range q.completed {
		if t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(q.completed, id)
			evicted++
		}
	}
	return evicted
}
