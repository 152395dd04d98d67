package engine

import "sync"

// runLocks gives each campaign at most one dispatcher run at a time. An
// explicit start racing a retry-triggered resume gets rejected, not queued.
type runLocks struct {
    mu     sync.Mutex
    active map[int]struct{}
}

func newRunLocks() *runLocks {
    return &runLocks{active: make(map[int]struct{})}
}

func (l *runLocks) tryAcquire(campaignID int) bool {
    l.mu.Lock()
    defer l.mu.Unlock()
    if _, ok := l.active[campaignID]; ok {
        return false
    }
    l.active[campaignID] = struct{}{}
    return true
}

func (l *runLocks) release(campaignID int) {
    l.mu.Lock()
    defer l.mu.Unlock()
    delete(l.active, campaignID)
}
