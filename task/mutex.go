package task

import "sync"

/// Mutex_i is the lock handed to user space through the mutex
/// syscalls.
type Mutex_i interface {
	Lock()
	Unlock()
}

/// Spinmtx_t retries with a yield between attempts; no queue, no
/// fairness.
type Spinmtx_t struct {
	mu     sync.Mutex
	locked bool
}

/// Mkspinmtx returns an unlocked spin mutex.
func Mkspinmtx() *Spinmtx_t {
	return &Spinmtx_t{}
}

/// Lock spins, yielding the hart while the lock is held elsewhere.
func (m *Spinmtx_t) Lock() {
	for {
		m.mu.Lock()
		if m.locked {
			m.mu.Unlock()
			Suspend_current_and_run_next()
			continue
		}
		m.locked = true
		m.mu.Unlock()
		return
	}
}

/// Unlock releases without waking anyone; spinners notice on their
/// next attempt.
func (m *Spinmtx_t) Unlock() {
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
}

/// Blockmtx_t parks waiters on a FIFO queue. Unlock hands the lock
/// directly to the queue head: locked stays true and the woken thread
/// owns it.
type Blockmtx_t struct {
	mu     sync.Mutex
	locked bool
	waitq  []*Task_t
}

/// Mkblockmtx returns an unlocked blocking mutex.
func Mkblockmtx() *Blockmtx_t {
	return &Blockmtx_t{}
}

/// Lock takes the mutex or parks the running thread.
func (m *Blockmtx_t) Lock() {
	m.mu.Lock()
	if m.locked {
		m.waitq = append(m.waitq, Current_task())
		m.mu.Unlock()
		Block_current_and_run_next()
		return
	}
	m.locked = true
	m.mu.Unlock()
}

/// Unlock wakes the queue head, transferring ownership, or clears the
/// lock when nobody waits.
func (m *Blockmtx_t) Unlock() {
	m.mu.Lock()
	if len(m.waitq) > 0 {
		head := m.waitq[0]
		m.waitq = m.waitq[1:]
		m.mu.Unlock()
		Wakeup_task(head)
		return
	}
	m.locked = false
	m.mu.Unlock()
}
