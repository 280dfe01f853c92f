package task

import "sync"

// Ready queue and pid map. One lock covers both; both are leaf locks.

var mgr struct {
	sync.Mutex
	readyq []*Task_t
	pids   map[int]*Proc_t
}

func init() {
	mgr.pids = make(map[int]*Proc_t)
}

/// Add_task enqueues a thread at the tail of the ready queue.
func Add_task(t *Task_t) {
	mgr.Lock()
	mgr.readyq = append(mgr.readyq, t)
	mgr.Unlock()
}

/// Fetch_task dequeues the head.
func Fetch_task() (*Task_t, bool) {
	mgr.Lock()
	defer mgr.Unlock()
	if len(mgr.readyq) == 0 {
		return nil, false
	}
	t := mgr.readyq[0]
	mgr.readyq = mgr.readyq[1:]
	return t, true
}

/// Remove_task drops every queued reference to t; exit uses it to
/// keep zombie threads from being scheduled again.
func Remove_task(t *Task_t) {
	mgr.Lock()
	q := mgr.readyq[:0]
	for _, e := range mgr.readyq {
		if e != t {
			q = append(q, e)
		}
	}
	mgr.readyq = q
	mgr.Unlock()
}

/// Wakeup_task marks a blocked thread ready and enqueues it.
func Wakeup_task(t *Task_t) {
	t.Lock()
	t.Status = Ready
	t.Unlock()
	Add_task(t)
}

/// Insert_pid registers a process.
func Insert_pid(pid int, p *Proc_t) {
	mgr.Lock()
	mgr.pids[pid] = p
	mgr.Unlock()
}

/// Remove_pid unregisters a process.
func Remove_pid(pid int) {
	mgr.Lock()
	delete(mgr.pids, pid)
	mgr.Unlock()
}

/// Pid2proc looks a process up by pid.
func Pid2proc(pid int) (*Proc_t, bool) {
	mgr.Lock()
	defer mgr.Unlock()
	p, ok := mgr.pids[pid]
	return p, ok
}
