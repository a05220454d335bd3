package trader

import "github.com/alanyoungcy/tradebot/internal/domain"

// Status is a point-in-time snapshot of the trader for the status API.
type Status struct {
	AssetPair string              `json:"asset_pair"`
	Asset     string              `json:"asset"`
	Policy    string              `json:"policy"`
	Mode      string              `json:"mode"`
	Interval  string              `json:"interval"`
	Cycles    int64               `json:"cycles"`
	Orders    int64               `json:"orders"`
	Last      *domain.CycleReport `json:"last_cycle,omitempty"`
}

// Status returns a copy of the trader's counters and last cycle.
func (t *Trader) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		AssetPair: t.cfg.AssetPair,
		Asset:     t.cfg.Asset,
		Policy:    t.policy.Name(),
		Mode:      t.cfg.Mode,
		Interval:  t.cfg.Interval.String(),
		Cycles:    t.cycles,
		Orders:    t.orders,
	}
	if n := len(t.recent); n > 0 {
		last := t.recent[n-1]
		s.Last = &last
	}
	return s
}

// Recent returns up to limit most recent cycle reports, newest first.
func (t *Trader) Recent(limit int) []domain.CycleReport {
	if limit <= 0 {
		limit = 20
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.recent)
	if limit > n {
		limit = n
	}
	out := make([]domain.CycleReport, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, t.recent[i])
	}
	return out
}

func (t *Trader) remember(r domain.CycleReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycles++
	t.recent = append(t.recent, r)
	if over := len(t.recent) - t.cfg.RecentLimit; over > 0 {
		t.recent = append(t.recent[:0], t.recent[over:]...)
	}
}

func (t *Trader) cycleCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cycles
}
