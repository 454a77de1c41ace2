package raid

import "sync"

// registry is the set of raids that currently own their key. The lock only
// guards the map; each raid carries its own lock for everything else.
type registry struct {
	mu    sync.RWMutex
	raids map[Key]*Raid
}

func newRegistry() *registry {
	return &registry{raids: make(map[Key]*Raid)}
}

// reserve registers r under its key unless another raid already holds it.
func (reg *registry) reserve(r *Raid) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.raids[r.key]; exists {
		return false
	}
	reg.raids[r.key] = r
	return true
}

// remove deregisters r. A newer raid registered under the same key is left alone.
func (reg *registry) remove(r *Raid) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.raids[r.key] == r {
		delete(reg.raids, r.key)
	}
}

func (reg *registry) get(key Key) (*Raid, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.raids[key]
	return r, ok
}

// inChat returns the raids of one chat, or of every chat when chatID is nil.
func (reg *registry) inChat(chatID *int64) []*Raid {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Raid, 0, len(reg.raids))
	for key, r := range reg.raids {
		if chatID == nil || key.ChatID == *chatID {
			out = append(out, r)
		}
	}
	return out
}

func (reg *registry) len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.raids)
}
