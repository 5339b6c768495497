package plasma

import "github.com/1broseidon/dockwin/internal/platform"

func (b *Backend) desktopCreated(id string, position int) {
	if id == "" {
		return
	}
	before := b.desktops.Len()
	handle, known := b.desktops.Handle(id)
	if !known {
		handle = b.comp.getDesktop(id)
	}
	b.desktops.Created(id, position, handle)
	if n := b.desktops.Len(); n != before {
		b.opts.Publish(platform.Event{Kind: platform.NumberOfDesktopsChanged, Count: n})
	}
}

func (b *Backend) desktopRemoved(id string) {
	handle, ok := b.desktops.Removed(id)
	if !ok {
		return
	}
	b.comp.forgetDesktop(handle)
	b.opts.Publish(platform.Event{Kind: platform.NumberOfDesktopsChanged, Count: b.desktops.Len()})
}

func (b *Backend) desktopNameChanged(id, name string) {
	if b.desktops.NameChanged(id, name) {
		b.opts.Publish(platform.Event{Kind: platform.DesktopNameChanged, DesktopID: id, Name: name})
	}
}

func (b *Backend) desktopActivated(id string) {
	if b.desktops.Activated(id) {
		b.opts.Publish(platform.Event{Kind: platform.CurrentDesktopChanged, DesktopID: id})
	}
}

// Desktops returns the virtual desktops in compositor order.
func (b *Backend) Desktops() []platform.Desktop { return b.desktops.All() }

// NumberOfDesktops returns the number of virtual desktops.
func (b *Backend) NumberOfDesktops() int { return b.desktops.Len() }

// CurrentDesktop returns the current desktop id.
func (b *Backend) CurrentDesktop() string { return b.desktops.Current() }

// SetCurrentDesktop requests activation of a desktop. The current pointer
// only moves once the compositor confirms.
func (b *Backend) SetCurrentDesktop(id string) {
	handle, ok := b.desktops.Handle(id)
	if !ok {
		b.logger.Debug("plasma: unknown desktop", "desktop", id)
		return
	}
	b.comp.activateDesktop(handle)
}
