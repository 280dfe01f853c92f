package sys

import "rvos/task"

func sys_mutex_create(blocking int) int {
	p := task.Current_proc()
	var m task.Mutex_i
	if blocking != 0 {
		m = task.Mkblockmtx()
	} else {
		m = task.Mkspinmtx()
	}
	p.Lock()
	defer p.Unlock()
	for i, e := range p.Mutexes {
		if e == nil {
			p.Mutexes[i] = m
			return i
		}
	}
	p.Mutexes = append(p.Mutexes, m)
	return len(p.Mutexes) - 1
}

func mtxget(id int) (task.Mutex_i, bool) {
	p := task.Current_proc()
	p.Lock()
	defer p.Unlock()
	if id < 0 || id >= len(p.Mutexes) || p.Mutexes[id] == nil {
		return nil, false
	}
	return p.Mutexes[id], true
}

func sys_mutex_lock(id int) int {
	m, ok := mtxget(id)
	if !ok {
		return -1
	}
	m.Lock()
	return 0
}

func sys_mutex_unlock(id int) int {
	m, ok := mtxget(id)
	if !ok {
		return -1
	}
	m.Unlock()
	return 0
}
