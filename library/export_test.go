package library

// resetLoaded clears the process-wide load registry between tests.
func resetLoaded() {
	loadedMu.Lock()
	defer loadedMu.Unlock()
	loaded = make(map[string]*Library)
}
