package workers

import "time"

func (p *WorkerPool) incrementSubmitted() {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.TasksSubmitted++
}

func (p *WorkerPool) recordResult(r Result) {
	p.statsMu.Lock()
	if r.Error != nil {
		p.stats.TasksFailed++
	} else {
		p.stats.TasksCompleted++
	}
	p.stats.TotalDuration += r.Duration
	p.statsMu.Unlock()

	p.prom.RecordWorkerTask(r.Type, r.Error == nil)
	p.prom.SetQueueDepth(len(p.taskQueue))
}

// Metrics returns a snapshot of the pool counters.
func (p *WorkerPool) Metrics() PoolMetrics {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// AverageDuration returns the mean task duration.
func (m PoolMetrics) AverageDuration() time.Duration {
	done := m.TasksCompleted + m.TasksFailed
	if done == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(done)
}
