package main

import "context"

// noopDriver stands in where no input simulation backend is linked. App
// lifecycle, URLs, and files still work through the OS launcher commands;
// keyboard and mouse primitives become no-ops. A real deployment swaps in a
// driver backed by the host's accessibility or input APIs.
type noopDriver struct{}

func (noopDriver) TypeText(context.Context, string) error    { return nil }
func (noopDriver) Click(context.Context) error               { return nil }
func (noopDriver) RightClick(context.Context) error          { return nil }
func (noopDriver) DoubleClick(context.Context) error         { return nil }
func (noopDriver) Scroll(context.Context, string, int) error { return nil }
func (noopDriver) PressKey(context.Context, string) error    { return nil }
func (noopDriver) Hotkey(context.Context, []string) error    { return nil }
