package feed

// Listener receives the controller's events. Calls happen on the goroutine
// that performed the operation, never while the controller's lock is held.
type Listener interface {
	// OnStateChange is called after every mutation with a snapshot.
	OnStateChange(State)
	// OnError is called with a *LoadError when a fetch fails.
	OnError(error)
	// OnShakeRefreshed asks the user to acknowledge a shake-triggered
	// refresh. The shake gate stays closed until AcknowledgeShake.
	OnShakeRefreshed()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StateChange    func(State)
	Error          func(error)
	ShakeRefreshed func()
}

func (l ListenerFuncs) OnStateChange(s State) {
	if l.StateChange != nil {
		l.StateChange(s)
	}
}

func (l ListenerFuncs) OnError(err error) {
	if l.Error != nil {
		l.Error(err)
	}
}

func (l ListenerFuncs) OnShakeRefreshed() {
	if l.ShakeRefreshed != nil {
		l.ShakeRefreshed()
	}
}

type multiListener []Listener

// MultiListener fans events out to every non-nil listener in order.
func MultiListener(listeners ...Listener) Listener {
	var m multiListener
	for _, l := range listeners {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m multiListener) OnStateChange(s State) {
	for _, l := range m {
		l.OnStateChange(s)
	}
}

func (m multiListener) OnError(err error) {
	for _, l := range m {
		l.OnError(err)
	}
}

func (m multiListener) OnShakeRefreshed() {
	for _, l := range m {
		l.OnShakeRefreshed()
	}
}
