package domain

import "errors"

var (
	// ErrNameTaken is returned when an alive player already uses the username.
	ErrNameTaken = errors.New("username taken")
	// ErrOriginTaken is returned when an alive player is already connected from the same origin.
	ErrOriginTaken = errors.New("origin already connected")
	// ErrLobbyFull is returned when the lobby has reached its player capacity.
	ErrLobbyFull = errors.New("lobby full")
	// ErrNoQuestions indicates the question bank is empty; the quiz cannot start.
	ErrNoQuestions = errors.New("no questions loaded")
	// ErrBankNotFound indicates the named question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrUnknownMessage indicates a line with an unrecognized protocol tag.
	ErrUnknownMessage = errors.New("unknown message tag")
)
