// Package tui is a terminal front end for the quote widget built on Bubble Tea.
//
// The model talks to the application layer only through the Service
// interface and renders status messages streamed from the status feed.
// Every string that reaches the terminal passes through Sanitize.
package tui
