package profile

import (
	"strings"
	"sync"

	"github.com/HopIT-Hub/macrokey/internal/action"
	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
)

// Store owns every main profile and the global live sub-profile. All
// operations are serialised; a failed operation leaves the store unchanged.
type Store struct {
	mu          sync.RWMutex
	script      *action.Script
	trayVisible bool
	activeMain  int
	activeSub   int
	live        SubProfile
	profiles    []*MainProfile
}

// NewStore returns a store holding a single default "Main" profile. A nil
// script gets a fresh, disabled switch.
func NewStore(script *action.Script) *Store {
	if script == nil {
		script = action.NewScript()
	}
	mp := DefaultMainProfile(0, "Main")
	return &Store{
		script:      script,
		trayVisible: true,
		live:        mp.Main.Clone(),
		profiles:    []*MainProfile{&mp},
	}
}

// Load replaces the profiles with the decoded document. The active profile
// falls back to a default one, not inserted, when its id is missing.
func (s *Store) Load(data []byte) error {
	f, err := ParseFile(data)
	if err != nil {
		return err
	}

	profiles := make([]*MainProfile, 0, len(f.MainProfiles))
	for _, mf := range f.MainProfiles {
		mp := mainProfileFromFile(mf)
		profiles = append(profiles, &mp)
	}

	active := DefaultMainProfile(0, "Main")
	for _, mp := range profiles {
		if mp.ID == f.ActiveMainProfile {
			active = *mp
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = profiles
	s.activeMain = f.ActiveMainProfile
	s.activeSub = active.ActiveSubProfile
	s.live = active.Main.Clone()
	return nil
}

// Export returns the persisted form of every main profile.
func (s *Store) Export() File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := File{ActiveMainProfile: s.activeMain, MainProfiles: make([]MainProfileFile, 0, len(s.profiles))}
	for _, mp := range s.profiles {
		f.MainProfiles = append(f.MainProfiles, mainProfileToFile(*mp))
	}
	return f
}

// Save encodes the store in the persisted format.
func (s *Store) Save() ([]byte, error) {
	return s.Export().Marshal()
}

func (s *Store) find(id int) (*MainProfile, bool) {
	for _, mp := range s.profiles {
		if mp.ID == id {
			return mp, true
		}
	}
	return nil, false
}

func (s *Store) activeProfile() (*MainProfile, error) {
	mp, ok := s.find(s.activeMain)
	if !ok {
		return nil, errdef.New(errdef.CodeNotFound, "active main profile %d not found", s.activeMain)
	}
	return mp, nil
}

// ActivateMainProfile makes profile id active and replaces the live copy
// with a clone of its mirror.
func (s *Store) ActivateMainProfile(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.find(id)
	if !ok {
		return errdef.New(errdef.CodeNotFound, "main profile %d not found", id)
	}
	s.activeMain = mp.ID
	s.activeSub = mp.ActiveSubProfile
	s.live = mp.Main.Clone()
	return nil
}

// ActivateSubProfile selects numbered sub-profile id of the active main
// profile and replaces both its mirror and the live copy with clones of it.
func (s *Store) ActivateSubProfile(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, err := s.activeProfile()
	if err != nil {
		return err
	}
	sp, ok := mp.subProfile(id)
	if !ok {
		return errdef.New(errdef.CodeNotFound, "sub-profile %d not found in main profile %d", id, mp.ID)
	}
	mp.ActiveSubProfile = sp.ID
	mp.Main = sp.Clone()
	s.activeSub = sp.ID
	s.live = sp.Clone()
	return nil
}

// CommitLive copies the live bindings into numbered sub-profile target.
// Committing into the active sub-profile refreshes the mirror too.
func (s *Store) CommitLive(target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(target)
}

func (s *Store) commitLocked(target int) error {
	mp, err := s.activeProfile()
	if err != nil {
		return err
	}
	sp, ok := mp.subProfile(target)
	if !ok {
		return errdef.New(errdef.CodeNotFound, "sub-profile %d not found in main profile %d", target, mp.ID)
	}
	sp.Bindings = cloneBindings(s.live.Bindings)
	if sp.ID == mp.ActiveSubProfile {
		mp.Main = sp.Clone()
	}
	return nil
}

// AutoSave commits the live bindings into the active sub-profile.
func (s *Store) AutoSave() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(s.activeSub)
}

// AddMainProfile appends a default profile whose id is the current profile
// count and returns that id.
func (s *Store) AddMainProfile(title string) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, errdef.New(errdef.CodeValidation, "main profile title is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := len(s.profiles)
	mp := DefaultMainProfile(id, title)
	s.profiles = append(s.profiles, &mp)
	return id, nil
}

// LiveBindings returns the live binding pointers. Dispatch compiles these,
// so every binding keeps one execution guard across re-applies.
func (s *Store) LiveBindings() []*Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Binding(nil), s.live.Bindings...)
}

// Live returns a clone of the live sub-profile.
func (s *Store) Live() SubProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.Clone()
}

// normalize canonicalises a binding's activation key. An empty key is kept:
// such a binding is simply never registered.
func normalize(b Binding) (*Binding, error) {
	if b.KeyActive != "" {
		c, err := keycombo.Parse(b.KeyActive)
		if err != nil {
			return nil, err
		}
		b.KeyActive = c.String()
	}
	if b.Action == nil {
		b.Action = action.NewInstance(action.KindUnset)
	}
	return &b, nil
}

// AddBinding appends b to the live bindings and returns its index.
func (s *Store) AddBinding(b Binding) (int, error) {
	nb, err := normalize(b)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live.Bindings = append(s.live.Bindings, nb)
	return len(s.live.Bindings) - 1, nil
}

// UpdateBinding replaces live binding i.
func (s *Store) UpdateBinding(i int, b Binding) error {
	nb, err := normalize(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.live.Bindings) {
		return errdef.New(errdef.CodeNotFound, "binding %d not found", i)
	}
	s.live.Bindings[i] = nb
	return nil
}

// RemoveBinding deletes live binding i.
func (s *Store) RemoveBinding(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.live.Bindings) {
		return errdef.New(errdef.CodeNotFound, "binding %d not found", i)
	}
	s.live.Bindings = append(s.live.Bindings[:i:i], s.live.Bindings[i+1:]...)
	return nil
}

// Binding returns the live binding at index i.
func (s *Store) Binding(i int) (*Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.live.Bindings) {
		return nil, errdef.New(errdef.CodeNotFound, "binding %d not found", i)
	}
	return s.live.Bindings[i], nil
}

func (s *Store) Script() *action.Script { return s.script }

func (s *Store) ScriptActive() bool { return s.script.Active() }

// SetScriptActive drives the shared script switch. Disabling cancels every
// running action at its next suspension point.
func (s *Store) SetScriptActive(active bool) { s.script.Set(active) }

func (s *Store) TrayVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trayVisible
}

func (s *Store) SetTrayVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trayVisible = visible
}

func (s *Store) ActiveMainProfile() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeMain
}

func (s *Store) ActiveSubProfile() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSub
}

// Profiles returns clones of every main profile in order.
func (s *Store) Profiles() []MainProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MainProfile, 0, len(s.profiles))
	for _, mp := range s.profiles {
		out = append(out, mp.Clone())
	}
	return out
}

// Notification builds the tray payload.
func (s *Store) Notification() Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Notification{
		ScriptActive:     s.script.Active(),
		TrayVisible:      s.trayVisible,
		ActiveSubProfile: s.activeSub,
		Main:             ProfileInfo{Title: s.live.Title, ID: s.live.ID},
	}
}
