package cooker

// KeyInput is one hardware key record as it arrives at the cooker.
type KeyInput struct {
	Code     uint32 // WM_KEYDOWN or WM_KEYUP
	VKey     int
	Unified  int // the L/R-folded virtual key, already computed by keystate
	MenuOwned bool
	IMEAllowed bool
	TargetWindow WindowHandle
}

// KeyOutcome is the cooker's verdict on a hardware key record.
type KeyOutcome struct {
	Action MouseAction // ActionDrop / ActionDeliver reused verbatim
	VKey   int
}

// CookKey runs the keyboard-cooker pipeline: journal hook, F1/VK_APPS/
// browser-command synthesis, WH_KEYBOARD consultation, and IME key
// processing.
func (c *Cooker) CookKey(in KeyInput) KeyOutcome {
	down := in.Code == WM_KEYDOWN

	if c.hooks != nil && c.hooks.CallJournal(in.Code, uintptr(in.VKey), 0) {
		return KeyOutcome{Action: ActionDrop}
	}

	if down && in.VKey == VK_F1 && c.poster != nil {
		c.poster.Post(in.TargetWindow, wmKeyF1Undoc, 0, 0)
	}
	if down && in.VKey == VK_APPS && !in.MenuOwned && c.poster != nil {
		c.poster.Post(in.TargetWindow, WM_CONTEXTMENU, uintptr(in.TargetWindow), 0)
	}
	if down && in.VKey >= vkBrowserLo && in.VKey <= vkLaunchHi && c.poster != nil {
		c.poster.Post(in.TargetWindow, WM_APPCOMMAND, uintptr(in.TargetWindow), uintptr(in.VKey))
	}

	if c.hooks != nil && c.hooks.CallKeyboardHook(in.VKey, down) {
		return KeyOutcome{Action: ActionDrop}
	}

	vk := in.VKey
	if c.ime != nil && in.IMEAllowed {
		flags := c.ime.ProcessKey(in.TargetWindow, in.Code, uintptr(in.VKey), 0)
		if flags&IMESkipThisKey != 0 {
			return KeyOutcome{Action: ActionDrop}
		}
		if flags&IMEProcessByIME != 0 {
			vk = 0 // the "processed" sentinel: the IME has fully consumed this key
		}
	}

	return KeyOutcome{Action: ActionDeliver, VKey: vk}
}
