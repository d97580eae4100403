// Package agent runs one soccer-simulator player connection: it receives
// server datagrams, classifies them by header, feeds the timing and
// tracking core and sends commands back.
package agent
