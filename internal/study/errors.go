// Package study builds shuffled decks from sheet data and drives study
// sessions over them: reveal the answer, advance, reshuffle on wraparound.
package study

import "errors"

var (
	// ErrEmptySelection is returned when a session start names no sheets.
	// No fetch is issued.
	ErrEmptySelection = errors.New("empty selection")

	// ErrEmptyDeck is returned by cursor intents when the deck has no rows.
	ErrEmptyDeck = errors.New("no data")

	// ErrSuperseded is returned by a start whose fetch finished after a
	// newer start for the same session.
	ErrSuperseded = errors.New("session start superseded")

	// ErrNotStarted is returned by intents on a session that was never
	// started.
	ErrNotStarted = errors.New("session not started")

	// ErrClosed is returned by a start on a session that has been closed.
	ErrClosed = errors.New("session closed")
)
