// Package tray puts the local performance controls in the system tray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: start/stop performing, cycle the mode, show
// the last note and open the web UI.
type Tray struct {
	mu         sync.RWMutex
	performing bool
	mode       string
	lastNote   string

	onToggle func(performing bool)
	onMode   func() string
	onOpen   func()
	onQuit   func()

	menuToggle *systray.MenuItem
	menuMode   *systray.MenuItem
	menuNote   *systray.MenuItem
}

// New creates a Tray showing mode, not yet performing.
func New(mode string) *Tray {
	return &Tray{mode: mode}
}

// OnToggle sets the callback for the perform toggle.
func (t *Tray) OnToggle(fn func(performing bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnCycleMode sets the callback for the mode item. It returns the new mode.
func (t *Tray) OnCycleMode(fn func() string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMode = fn
}

// OnOpen sets the callback for the "Open nritya" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit exits the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("nritya")
	systray.SetTooltip("nritya movement to music")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.performing), "Start or stop performing")
	t.menuMode = systray.AddMenuItem(modeTitle(t.mode), "Switch between melody, harp and ambient")
	systray.AddSeparator()
	t.menuNote = systray.AddMenuItem(noteTitle(t.lastNote), "Last played note")
	t.menuNote.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open nritya...", "Open the web UI in a browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit nritya")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.toggle()
			case <-t.menuMode.ClickedCh:
				t.cycleMode()
			case <-menuOpen.ClickedCh:
				t.mu.RLock()
				open := t.onOpen
				t.mu.RUnlock()
				if open != nil {
					go open()
				}
			case <-menuQuit.ClickedCh:
				t.mu.RLock()
				quit := t.onQuit
				t.mu.RUnlock()
				if quit != nil {
					quit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) toggle() {
	t.mu.Lock()
	t.performing = !t.performing
	performing := t.performing
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(performing))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(performing)
	}
}

func (t *Tray) cycleMode() {
	t.mu.RLock()
	callback := t.onMode
	t.mu.RUnlock()
	if callback == nil {
		return
	}
	t.SetMode(callback())
}

// SetMode updates the displayed mode.
func (t *Tray) SetMode(mode string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	if t.menuMode != nil {
		t.menuMode.SetTitle(modeTitle(mode))
	}
}

// SetLastNote updates the last note display.
func (t *Tray) SetLastNote(pitch string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastNote = pitch
	if t.menuNote != nil {
		t.menuNote.SetTitle(noteTitle(pitch))
	}
}

// Performing reports the toggle state.
func (t *Tray) Performing() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.performing
}

// Mode returns the displayed mode.
func (t *Tray) Mode() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func toggleTitle(performing bool) string {
	if performing {
		return "● Performing"
	}
	return "○ Stopped"
}

func modeTitle(mode string) string {
	return "Mode: " + mode
}

func noteTitle(pitch string) string {
	if pitch == "" {
		return "Last: none"
	}
	return "Last: " + pitch
}
