//go:build linux

package main

func main() {
	s := boot()
	if s.cfg.UI == "gui" {
		runGUI(s)
		return
	}
	run(s)
}
