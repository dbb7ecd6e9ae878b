// Command firmware is the top-level entry point: construct the wired
// hardware stack and run the event loop forever.
//
// Grounded on main.rs's main(): construct once, then loop.
package main

import "github.com/adamgreig/ffp/board/probe"

func main() {
	p := probe.New()
	p.App.Setup()
	for {
		p.App.Poll()
	}
}
