// Package screen is the presentation layer: stateless functions mapping
// session data to renderable screen descriptions (text plus action list).
// It knows nothing about any chat platform; transports decide how a Screen
// is displayed and how its actions are offered.
package screen
