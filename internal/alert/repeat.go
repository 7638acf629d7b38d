package alert

import "time"

// repeater calls fn immediately and then every period until stopped.
type repeater struct {
	stopc chan struct{}
	done  chan struct{}
}

func startRepeater(period time.Duration, fn func()) *repeater {
	r := &repeater{
		stopc: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(r.done)

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		fn()
		for {
			select {
			case <-r.stopc:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return r
}

func (r *repeater) stop() {
	close(r.stopc)
	<-r.done
}
