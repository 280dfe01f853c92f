package task

import "container/heap"
import "sync"

import "rvos/defs"
import "rvos/sbi"

/// Get_time returns the raw time CSR.
func Get_time() int {
	return sbi.ReadTime(defs.CLOCK_FREQ)
}

/// Get_time_ms returns milliseconds since boot.
func Get_time_ms() int {
	return Get_time() * 1000 / defs.CLOCK_FREQ
}

/// Set_next_trigger programs the next tick.
func Set_next_trigger() {
	sbi.SetTimer(Get_time() + defs.CLOCK_FREQ/defs.TICKS_PER_SEC)
}

type timerent_t struct {
	expire int
	task   *Task_t
}

// min-heap by expiry; ties keep insertion order irrelevant.
type timerheap_t []*timerent_t

func (h timerheap_t) Len() int            { return len(h) }
func (h timerheap_t) Less(i, j int) bool  { return h[i].expire < h[j].expire }
func (h timerheap_t) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerheap_t) Push(x interface{}) { *h = append(*h, x.(*timerent_t)) }
func (h *timerheap_t) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

var timers struct {
	sync.Mutex
	h timerheap_t
}

/// Add_timer schedules a wakeup for the thread at the absolute
/// millisecond expiry.
func Add_timer(expire_ms int, t *Task_t) {
	timers.Lock()
	heap.Push(&timers.h, &timerent_t{expire: expire_ms, task: t})
	timers.Unlock()
}

/// Remove_timer drops every entry for the thread by rebuilding the
/// heap without it.
func Remove_timer(t *Task_t) {
	timers.Lock()
	nh := make(timerheap_t, 0, len(timers.h))
	for _, e := range timers.h {
		if e.task != t {
			nh = append(nh, e)
		}
	}
	heap.Init(&nh)
	timers.h = nh
	timers.Unlock()
}

/// Check_timer wakes every thread whose expiry has passed; called
/// from the timer interrupt.
func Check_timer() {
	now := Get_time_ms()
	for {
		timers.Lock()
		if len(timers.h) == 0 || timers.h[0].expire > now {
			timers.Unlock()
			return
		}
		e := heap.Pop(&timers.h).(*timerent_t)
		timers.Unlock()
		Wakeup_task(e.task)
	}
}

/// Sleep_current blocks the running thread until now+ms.
func Sleep_current(ms int) {
	t := Current_task()
	Add_timer(Get_time_ms()+ms, t)
	Block_current_and_run_next()
}
