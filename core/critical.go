package core

// Critical runs fn with interrupts masked, so no edge callback can run in between.
func Critical(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
