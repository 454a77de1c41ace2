package raid

import (
	"sync"
	"time"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
	"github.com/lisanmuaddib/raider-go/pkg/postmetrics"
)

// Raid is the engine's live record of one campaign. Every field after mu is
// guarded by it; the monitor loop, refreshes and cancellations all serialise
// on that lock.
type Raid struct {
	mu sync.Mutex

	id        string
	key       Key
	postURL   string
	targets   Targets
	startedAt time.Time
	endsAt    time.Time

	current      postmetrics.Snapshot
	samples      []postmetrics.Snapshot
	dashboardRef chat.MessageRef
	status       Status
	updates      int

	// stop is closed on the transition to a terminal status.
	stop chan struct{}
}

func (r *Raid) viewLocked() View {
	return View{
		ID:           r.id,
		Key:          r.key,
		PostURL:      r.postURL,
		Targets:      r.targets,
		Current:      r.current,
		StartedAt:    r.startedAt,
		EndsAt:       r.endsAt,
		DashboardRef: r.dashboardRef,
		Status:       r.status,
		Updates:      r.updates,
	}
}

// View returns a copy of the raid's current state.
func (r *Raid) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Raid) recordLocked(s postmetrics.Snapshot) {
	r.current = s
	r.samples = append(r.samples, s)
}

// terminateLocked moves the raid to a terminal status and wakes its loop.
func (r *Raid) terminateLocked(status Status) {
	r.status = status
	close(r.stop)
}

// Summary describes a finished raid for the history store.
type Summary struct {
	View
	Samples    []postmetrics.Snapshot
	FinishedAt time.Time
}

func (r *Raid) summaryLocked(finishedAt time.Time) Summary {
	samples := make([]postmetrics.Snapshot, len(r.samples))
	copy(samples, r.samples)
	return Summary{View: r.viewLocked(), Samples: samples, FinishedAt: finishedAt}
}
