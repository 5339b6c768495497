package windowsystem

import "github.com/1broseidon/dockwin/internal/platform"

// reduced is the backend used when the session offers no task/pager
// integration. Queries are empty and commands do nothing.
type reduced struct{}

// NoneBackend is the name reported in reduced mode.
const NoneBackend = "none"

func (reduced) Name() string { return NoneBackend }
func (reduced) Capabilities() platform.Capabilities { return platform.Capabilities{} }
func (reduced) Windows() []platform.Window { return nil }
func (reduced) Window(platform.WindowID) (platform.Window, bool) { return platform.Window{}, false }
func (reduced) ActiveWindow() platform.WindowID { return platform.NoWindow }
func (reduced) StackingOrder() []platform.WindowID { return nil }
func (reduced) Desktops() []platform.Desktop { return nil }
func (reduced) NumberOfDesktops() int { return 0 }
func (reduced) CurrentDesktop() string { return "" }
func (reduced) ShowingDesktop() bool { return false }
func (reduced) ActivateWindow(platform.WindowID) {}
func (reduced) MinimizeWindow(platform.WindowID) {}
func (reduced) CloseWindow(platform.WindowID) {}
func (reduced) SetCurrentDesktop(string) {}
func (reduced) SetShowingDesktop(bool) {}
func (reduced) ResetActiveWindow() {}
func (reduced) SetCurrentActivity(string) {}
func (reduced) Close() error { return nil }
