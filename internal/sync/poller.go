// Package sync reloads remote collections in the background so changes made
// elsewhere show up on the board.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

// SyncState represents the current state of a collection refresh.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the refresh state of one collection.
type SyncStatus struct {
	Kind     model.Kind
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a refresh completes.
type SyncResultMsg struct {
	Kind model.Kind
	// Skipped is set when the collection had edits in flight and was left
	// alone this round.
	Skipped bool
	Error   error
}

// Target is a collection the poller can reload. *reconcile.Reconciler
// satisfies it.
type Target interface {
	Kind() model.Kind
	Load(ctx context.Context) error
	Busy() bool
}

// fetchTimeout is the maximum time allowed for a single reload.
const fetchTimeout = 30 * time.Second

// Poller orchestrates background reloading of registered collections.
type Poller struct {
	targets   []Target
	interval  time.Duration
	log       *log.Logger
	statuses  map[model.Kind]*SyncStatus
	resultCh  chan SyncResultMsg
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Poller that reloads targets every interval.
func New(interval time.Duration, logger *log.Logger, targets ...Target) *Poller {
	if logger == nil {
		logger = log.StandardLogger()
	}
	p := &Poller{
		targets:   targets,
		interval:  interval,
		log:       logger,
		statuses:  make(map[model.Kind]*SyncStatus),
		resultCh:  make(chan SyncResultMsg, 16),
		stopCh:    make(chan struct{}),
	}
	for _, t := range targets {
		p.statuses[t.Kind()] = &SyncStatus{Kind: t.Kind(), State: SyncIdle}
	}
	return p
}

// Start returns a tea.Cmd that starts the polling goroutine and subscribes
// to results. The first reload happens after one interval; the caller
// loads the collections itself at start-up.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || len(p.targets) == 0 || p.interval <= 0 {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.WaitForNextResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// GetStatuses returns the current state of all targets in registration
// order.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.targets))
	for _, t := range p.targets {
		statuses = append(statuses, *p.statuses[t.Kind()])
	}
	return statuses
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reloadAll()
		}
	}
}

func (p *Poller) reloadAll() {
	for _, t := range p.targets {
		p.reload(t)
	}
}

// reload refreshes one target. A target with edits in flight is skipped so
// a reload never discards an optimistic change.
func (p *Poller) reload(t Target) {
	kind := t.Kind()
	if t.Busy() {
		p.sendResult(SyncResultMsg{Kind: kind, Skipped: true})
		return
	}

	p.setStatus(kind, SyncRunning, nil)
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	if err := t.Load(ctx); err != nil {
		p.log.WithField("kind", kind).WithError(err).Debug("background reload failed")
		p.setStatus(kind, SyncError, err)
		p.sendResult(SyncResultMsg{Kind: kind, Error: err})
		return
	}
	p.setStatus(kind, SyncIdle, nil)
	p.sendResult(SyncResultMsg{Kind: kind})
}

// setStatus updates the sync status of kind.
func (p *Poller) setStatus(kind model.Kind, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[kind]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next result.
// Call it again after handling each SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}
