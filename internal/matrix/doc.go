// Package matrix is the chat frontend. It bridges Matrix rooms to the
// swap dispatcher: inbound room messages become state-machine events,
// rendered screens become formatted room messages.
//
// Matrix has no inline buttons, so each screen's actions are printed as
// reply options and an inbound message whose text matches an option
// label (case-insensitively) is treated as pressing that button. Other
// text is forwarded as free text, and messages starting with the
// command prefix become commands.
package matrix
