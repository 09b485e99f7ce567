package profile

import (
	"encoding/json"
	"sort"

	"github.com/HopIT-Hub/macrokey/internal/action"
	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

// File is the persisted configuration document.
type File struct {
	ActiveMainProfile int               `json:"activeMainProfile"`
	MainProfiles      []MainProfileFile `json:"mainProfiles"`
}

type MainProfileFile struct {
	ActiveSubProfile int              `json:"activeSubProfile"`
	Title            string           `json:"title"`
	ID               int              `json:"id"`
	Main             SubProfileFile   `json:"main"`
	SubVariants      []SubProfileFile `json:"subVariants"`
}

type SubProfileFile struct {
	Title        string        `json:"title"`
	ID           int           `json:"id"`
	KeybdActions []BindingFile `json:"keybdActions"`
}

type BindingFile struct {
	Name      string     `json:"name"`
	KeyActive string     `json:"keyActive"`
	Action    ActionFile `json:"action"`
}

// ActionFile keeps only the registry id and the parameters; titles and run
// functions are resolved again on load.
type ActionFile struct {
	ID     *int               `json:"id"`
	Params []action.Parameter `json:"params"`
}

// ParseFile decodes a persisted document.
func ParseFile(data []byte) (File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, errdef.Wrap(errdef.CodeValidation, err, "parse profiles")
	}
	return f, nil
}

// Marshal encodes f as indented JSON.
func (f File) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeUnknown, err, "encode profiles")
	}
	return data, nil
}

// Binding resolves the persisted action against the registry.
func (bf BindingFile) Binding() Binding {
	return Binding{
		Name:      bf.Name,
		KeyActive: bf.KeyActive,
		Action:    action.Resolve(bf.Action.ID, bf.Action.Params),
	}
}

func subProfileFromFile(f SubProfileFile) SubProfile {
	sp := SubProfile{Title: f.Title, ID: f.ID, Bindings: make([]*Binding, 0, len(f.KeybdActions))}
	for _, bf := range f.KeybdActions {
		b := bf.Binding()
		sp.Bindings = append(sp.Bindings, &b)
	}
	return sp
}

// mainProfileFromFile resolves every action and normalises the numbered
// sub-profiles to ids 0..9, filling gaps with defaults.
func mainProfileFromFile(f MainProfileFile) MainProfile {
	mp := DefaultMainProfile(f.ID, f.Title)
	mp.Main = subProfileFromFile(f.Main)

	subs := append([]SubProfileFile(nil), f.SubVariants...)
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	seen := make(map[int]bool, SubProfileCount)
	for _, sf := range subs {
		if sf.ID < 0 || sf.ID >= SubProfileCount || seen[sf.ID] {
			continue
		}
		seen[sf.ID] = true
		mp.SubProfiles[sf.ID] = subProfileFromFile(sf)
	}

	if f.ActiveSubProfile >= 0 && f.ActiveSubProfile < SubProfileCount {
		mp.ActiveSubProfile = f.ActiveSubProfile
	}
	return mp
}

// ExportSubProfile encodes sp in the persisted layout.
func ExportSubProfile(sp SubProfile) SubProfileFile { return subProfileToFile(sp) }

func subProfileToFile(sp SubProfile) SubProfileFile {
	out := SubProfileFile{Title: sp.Title, ID: sp.ID, KeybdActions: make([]BindingFile, 0, len(sp.Bindings))}
	for _, b := range sp.Bindings {
		if b == nil {
			continue
		}
		af := ActionFile{Params: []action.Parameter{}}
		if b.Action != nil {
			af.ID = b.Action.Kind.ID()
			if p := action.CloneParams(b.Action.Params); p != nil {
				af.Params = p
			}
		}
		out.KeybdActions = append(out.KeybdActions, BindingFile{Name: b.Name, KeyActive: b.KeyActive, Action: af})
	}
	return out
}

func mainProfileToFile(mp MainProfile) MainProfileFile {
	out := MainProfileFile{
		ActiveSubProfile: mp.ActiveSubProfile,
		Title:            mp.Title,
		ID:               mp.ID,
		Main:             subProfileToFile(mp.Main),
		SubVariants:      make([]SubProfileFile, 0, SubProfileCount),
	}
	for _, sp := range mp.SubProfiles {
		out.SubVariants = append(out.SubVariants, subProfileToFile(sp))
	}
	return out
}
