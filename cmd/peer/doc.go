// Package peer implements the "dstate peer" command: a demo peer process with a
// counter and a todo list that is persisted with the configured engine and
// exposed to "dstate controller".
package peer
