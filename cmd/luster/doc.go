// Package main hosts the luster CLI entrypoint and command graph.
//
// The cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's API: image submission, status polling, event
// watching, result download, and configuration scaffolding. It centralizes
// configuration resolution and server discovery so subcommands can focus on
// user experience instead of wiring.
package main
