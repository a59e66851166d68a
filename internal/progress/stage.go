package progress

// throttle holds the per-subscription rate limiting state. A nil *throttle
// passes every report through.
type throttle struct {
	busy       bool
	pending    Report
	hasPending bool
}

// offer handles an incoming report and returns the report to forward now, if
// any. Completion reports always go out immediately and discard the pending
// slot; otherwise only the newest report survives while the slot is busy.
func (th *throttle) offer(r Report) (Report, bool) {
	if th == nil {
		return r, true
	}
	if r.Done() {
		th.busy = true
		th.pending, th.hasPending = Report{}, false
		return r, true
	}
	if !th.busy {
		th.busy = true
		return r, true
	}
	th.pending, th.hasPending = r, true
	return Report{}, false
}

// tick handles one timer period. A pending report is released and the slot
// stays busy; with nothing pending the slot becomes free.
func (th *throttle) tick() (Report, bool) {
	if th == nil {
		return Report{}, false
	}
	if th.hasPending {
		r := th.pending
		th.pending, th.hasPending = Report{}, false
		return r, true
	}
	th.busy = false
	return Report{}, false
}

// flush releases the pending report without waiting for a tick.
func (th *throttle) flush() (Report, bool) {
	if th == nil || !th.hasPending {
		return Report{}, false
	}
	r := th.pending
	th.pending, th.hasPending = Report{}, false
	return r, true
}

// autoDone ends a subscription after a completion report has been forwarded.
type autoDone bool

func (a autoDone) finished(r Report) bool {
	return bool(a) && r.Done()
}
