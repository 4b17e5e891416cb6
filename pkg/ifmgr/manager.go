package ifmgr

import (
	"sort"
	"sync"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

// Manager tracks link state by interface index and turns successive
// snapshots of a link into state transitions.
type Manager struct {
	mu      sync.RWMutex
	byIndex map[int]*Interface
	byName  map[string]*Interface
}

func New() *Manager {
	return &Manager{
		byIndex: make(map[int]*Interface),
		byName:  make(map[string]*Interface),
	}
}

// Update records the new state of a link and returns the transitions it
// implies, in the order they must be applied.
func (m *Manager) Update(iface *Interface) []netdev.LinkEventKind {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := iface.clone()
	prev, ok := m.byIndex[next.Index]
	m.store(prev, next)

	if !ok {
		if next.AdminUp {
			return []netdev.LinkEventKind{netdev.LinkActivated}
		}
		return nil
	}

	var kinds []netdev.LinkEventKind
	if !prev.sameAttrs(next) {
		kinds = append(kinds, netdev.LinkChanged)
	}
	switch {
	case !prev.AdminUp && next.AdminUp:
		kinds = append(kinds, netdev.LinkActivated)
	case prev.AdminUp && !next.AdminUp:
		kinds = append(kinds, netdev.LinkDeactivated)
	}
	return kinds
}

func (m *Manager) store(prev, next *Interface) {
	if prev != nil && prev.Name != "" {
		delete(m.byName, prev.Name)
	}
	m.byIndex[next.Index] = next
	if next.Name != "" {
		m.byName[next.Name] = next
	}
}

// Remove forgets a link. A link that was up is reported as deactivated
// before it is removed.
func (m *Manager) Remove(index int) (*Interface, []netdev.LinkEventKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	iface, ok := m.byIndex[index]
	if !ok {
		return nil, nil
	}
	delete(m.byIndex, index)
	if iface.Name != "" {
		delete(m.byName, iface.Name)
	}

	if iface.AdminUp {
		return iface.clone(), []netdev.LinkEventKind{netdev.LinkDeactivated, netdev.LinkRemoved}
	}
	return iface.clone(), []netdev.LinkEventKind{netdev.LinkRemoved}
}

func (m *Manager) Get(index int) *Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if iface, ok := m.byIndex[index]; ok {
		return iface.clone()
	}
	return nil
}

func (m *Manager) GetByName(name string) *Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if iface, ok := m.byName[name]; ok {
		return iface.clone()
	}
	return nil
}

func (m *Manager) GetIndex(name string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if iface, ok := m.byName[name]; ok {
		return iface.Index, true
	}
	return 0, false
}

// List returns all links ordered by index.
func (m *Manager) List() []*Interface {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Interface, 0, len(m.byIndex))
	for _, iface := range m.byIndex {
		result = append(result, iface.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byIndex = make(map[int]*Interface)
	m.byName = make(map[string]*Interface)
}
