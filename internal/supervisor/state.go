package supervisor

// RuntimeState is the lifecycle state of the supervised helper process.
type RuntimeState int

const (
	// Stopped means no process exists and none is wanted.
	Stopped RuntimeState = iota
	// Starting means the process was spawned and the readiness line is
	// awaited.
	Starting
	// Ready means the helper announced its socket and answers calls.
	Ready
	// Unhealthy means the process is alive but the last health check
	// failed. The next successful check returns it to Ready.
	Unhealthy
	// Crashed means the process exited outside an explicit Shutdown.
	Crashed
)

var stateNames = map[RuntimeState]string{
	Stopped:   "stopped",
	Starting:  "starting",
	Ready:     "ready",
	Unhealthy: "unhealthy",
	Crashed:   "crashed",
}

func (s RuntimeState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
