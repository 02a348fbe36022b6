//go:build race

package statemachine

const raceEnabled = true
