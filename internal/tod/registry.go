package tod

import "sync"

// Handle guards one guild's session. Mutations hold Lock, reads hold RLock.
type Handle struct {
	mu      sync.RWMutex
	session *Session
	retired bool
}

func (h *Handle) Lock()    { h.mu.Lock() }
func (h *Handle) Unlock()  { h.mu.Unlock() }
func (h *Handle) RLock()   { h.mu.RLock() }
func (h *Handle) RUnlock() { h.mu.RUnlock() }

// Session returns the guarded session. Callers must hold the lock.
func (h *Handle) Session() *Session { return h.session }

// Retired reports whether the handle was removed from its registry. A caller
// that locked a retired handle must look the guild up again.
func (h *Handle) Retired() bool { return h.retired }

// Registry maps guild ids to sessions.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Handle)}
}

// GetOrCreate returns the guild's handle, creating an empty session if needed.
func (r *Registry) GetOrCreate(guildID string) *Handle {
	r.mu.RLock()
	h, ok := r.entries[guildID]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.entries[guildID]; ok {
		return h
	}
	h = &Handle{session: newSession(guildID)}
	r.entries[guildID] = h
	return h
}

// Get returns the guild's handle or ErrNoSession. It never creates one.
func (r *Registry) Get(guildID string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[guildID]
	if !ok {
		return nil, ErrNoSession
	}
	return h, nil
}

// Remove drops the guild's entry and retires its handle. The caller must hold
// the handle's write lock.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.entries[guildID]; ok {
		h.retired = true
		delete(r.entries, guildID)
	}
}

// Len returns the number of guilds with a session entry.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// lock returns the guild's live handle locked for writing, creating it if needed.
func (r *Registry) lock(guildID string) *Handle {
	for {
		h := r.GetOrCreate(guildID)
		h.Lock()
		if !h.retired {
			return h
		}
		h.Unlock()
	}
}

// lockExisting is lock without creation.
func (r *Registry) lockExisting(guildID string) (*Handle, error) {
	for {
		h, err := r.Get(guildID)
		if err != nil {
			return nil, err
		}
		h.Lock()
		if !h.retired {
			return h, nil
		}
		h.Unlock()
	}
}

// rlockExisting returns the guild's live handle locked for reading.
func (r *Registry) rlockExisting(guildID string) (*Handle, error) {
	for {
		h, err := r.Get(guildID)
		if err != nil {
			return nil, err
		}
		h.RLock()
		if !h.retired {
			return h, nil
		}
		h.RUnlock()
	}
}
