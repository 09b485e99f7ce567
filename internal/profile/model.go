// Package profile is the configuration model: main profiles holding ten
// numbered sub-profiles of key bindings, and the store that owns them along
// with the live working copy the dispatcher serves.
package profile

import (
	"fmt"

	"github.com/HopIT-Hub/macrokey/internal/action"
)

// SubProfileCount is the number of numbered sub-profiles in every main profile.
const SubProfileCount = 10

// Binding maps a canonical key-combination identifier to an action.
type Binding struct {
	Name      string
	KeyActive string
	Action    *action.Instance
}

// Clone returns a structural copy. The action copy has its own guard.
func (b *Binding) Clone() *Binding {
	if b == nil {
		return nil
	}
	out := &Binding{Name: b.Name, KeyActive: b.KeyActive, Action: b.Action.Clone()}
	if out.Action == nil {
		out.Action = action.NewInstance(action.KindUnset)
	}
	return out
}

// SubProfile is a named, ordered set of bindings.
type SubProfile struct {
	Title    string
	ID       int
	Bindings []*Binding
}

// DefaultSubProfile returns the empty sub-profile "variant<id>".
func DefaultSubProfile(id int) SubProfile {
	return SubProfile{Title: fmt.Sprintf("variant%d", id), ID: id, Bindings: []*Binding{}}
}

// Clone copies every binding; the result never aliases sp.
func (sp SubProfile) Clone() SubProfile {
	return SubProfile{Title: sp.Title, ID: sp.ID, Bindings: cloneBindings(sp.Bindings)}
}

func cloneBindings(in []*Binding) []*Binding {
	out := make([]*Binding, 0, len(in))
	for _, b := range in {
		if b == nil {
			continue
		}
		out = append(out, b.Clone())
	}
	return out
}

// MainProfile groups ten numbered sub-profiles. Main mirrors the last
// activated sub-profile as a value copy.
type MainProfile struct {
	ID               int
	Title            string
	ActiveSubProfile int
	Main             SubProfile
	SubProfiles      [SubProfileCount]SubProfile
}

// DefaultMainProfile returns a profile with ten empty sub-profiles.
func DefaultMainProfile(id int, title string) MainProfile {
	mp := MainProfile{ID: id, Title: title, Main: DefaultSubProfile(0)}
	for i := range mp.SubProfiles {
		mp.SubProfiles[i] = DefaultSubProfile(i)
	}
	return mp
}

// Clone deep-copies the profile and all of its sub-profiles.
func (mp MainProfile) Clone() MainProfile {
	out := mp
	out.Main = mp.Main.Clone()
	for i := range mp.SubProfiles {
		out.SubProfiles[i] = mp.SubProfiles[i].Clone()
	}
	return out
}

// subProfile returns the numbered sub-profile with the given id.
func (mp *MainProfile) subProfile(id int) (*SubProfile, bool) {
	for i := range mp.SubProfiles {
		if mp.SubProfiles[i].ID == id {
			return &mp.SubProfiles[i], true
		}
	}
	return nil, false
}

// Notification is the state pushed to the tray surface. Bindings are not
// part of it.
type Notification struct {
	ScriptActive     bool        `json:"scriptActive"`
	TrayVisible      bool        `json:"trayVisible"`
	ActiveSubProfile int         `json:"activeSubProfile"`
	Main             ProfileInfo `json:"main"`
}

// ProfileInfo names a sub-profile.
type ProfileInfo struct {
	Title string `json:"title"`
	ID    int    `json:"id"`
}
