// Package tray manages the system tray icon and menu. It renders the
// notification payload and forwards the user's toggles.
package tray

import (
	"fmt"
	"strings"
	"sync"

	"fyne.io/systray"

	"github.com/HopIT-Hub/macrokey/internal/profile"
)

// RunOpts configures the system tray.
type RunOpts struct {
	Version          string // app version string (e.g., "1.0.0")
	AutoStartEnabled bool   // initial state of "Start on Login" checkbox
	OnReady          func()
	OnScript         func(active bool)  // called when user toggles the script
	OnSubProfile     func(id int)       // called when user picks a sub-profile
	OnAutoStart      func(enabled bool) // called when user toggles auto-start
	OnSettings       func()
	OnQuit           func()
}

type menu struct {
	mu     sync.Mutex
	title  *systray.MenuItem
	script *systray.MenuItem
	subs   [profile.SubProfileCount]*systray.MenuItem
	status *systray.MenuItem
	last   profile.Notification
	device string
	ready  bool
}

var ui menu

// Run starts the system tray. It blocks on the main thread.
func Run(opts RunOpts) {
	systray.Run(func() { onReady(opts) }, func() {})
}

func onReady(opts RunOpts) {
	systray.SetIcon(IconInactive)
	systray.SetTitle("")

	label := "macrokey"
	if opts.Version != "" && opts.Version != "dev" {
		label += " v" + strings.TrimPrefix(opts.Version, "v")
	}
	mVersion := systray.AddMenuItem(label, "")
	mVersion.Disable()

	systray.AddSeparator()

	mTitle := systray.AddMenuItem("", "Active sub-profile")
	mTitle.Disable()
	mScript := systray.AddMenuItemCheckbox("Script Active", "Run actions when their keys are pressed", false)
	mSubs := systray.AddMenuItem("Sub-profile", "Switch the active sub-profile")
	var subs [profile.SubProfileCount]*systray.MenuItem
	for i := range subs {
		subs[i] = mSubs.AddSubMenuItemCheckbox(fmt.Sprintf("%d", i), "", i == 0)
	}

	systray.AddSeparator()

	mSettings := systray.AddMenuItem("Control API...", "Open the control API")
	mAutoStart := systray.AddMenuItemCheckbox("Start on Login", "Launch automatically on login", opts.AutoStartEnabled)
	mStatus := systray.AddMenuItem("", "")
	mStatus.Disable()

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit macrokey")

	ui.mu.Lock()
	ui.title, ui.script, ui.subs, ui.status = mTitle, mScript, subs, mStatus
	ui.ready = true
	ui.renderLocked()
	ui.mu.Unlock()

	for i, item := range subs {
		go func() {
			for range item.ClickedCh {
				if opts.OnSubProfile != nil {
					opts.OnSubProfile(i)
				}
			}
		}()
	}

	if opts.OnReady != nil {
		opts.OnReady()
	}

	go func() {
		for {
			select {
			case <-mScript.ClickedCh:
				if opts.OnScript != nil {
					opts.OnScript(!mScript.Checked())
				}
			case <-mSettings.ClickedCh:
				if opts.OnSettings != nil {
					opts.OnSettings()
				}
			case <-mAutoStart.ClickedCh:
				enabled := !mAutoStart.Checked()
				if enabled {
					mAutoStart.Check()
				} else {
					mAutoStart.Uncheck()
				}
				if opts.OnAutoStart != nil {
					opts.OnAutoStart(enabled)
				}
			case <-mQuit.ClickedCh:
				if opts.OnQuit != nil {
					opts.OnQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

// Update renders a notification.
func Update(n profile.Notification) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.last = n
	ui.renderLocked()
}

// SetDevice shows the injection target state, empty to hide it.
func SetDevice(state string) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.device = state
	ui.renderLocked()
}

func (m *menu) renderLocked() {
	if !m.ready {
		return
	}
	n := m.last
	systray.SetIcon(iconFor(n))
	systray.SetTooltip(tooltip(n))
	m.title.SetTitle(subProfileLabel(n))
	if n.ScriptActive {
		m.script.Check()
	} else {
		m.script.Uncheck()
	}
	for i, item := range m.subs {
		if i == n.ActiveSubProfile {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	if m.device == "" {
		m.status.Hide()
	} else {
		m.status.SetTitle("Device: " + m.device)
		m.status.Show()
	}
}

func iconFor(n profile.Notification) []byte {
	switch {
	case !n.TrayVisible:
		return IconHidden
	case n.ScriptActive:
		return IconActive
	default:
		return IconInactive
	}
}

func subProfileLabel(n profile.Notification) string {
	title := n.Main.Title
	if title == "" {
		title = fmt.Sprintf("variant%d", n.Main.ID)
	}
	return fmt.Sprintf("%s (%d)", title, n.ActiveSubProfile)
}

func tooltip(n profile.Notification) string {
	state := "paused"
	if n.ScriptActive {
		state = "active"
	}
	return fmt.Sprintf("macrokey: %s, %s", state, subProfileLabel(n))
}

// Quit stops the system tray.
func Quit() {
	systray.Quit()
}
