package spis

import "errors"

var (
	// ErrPastDate means the resolved deadline is earlier than now.
	ErrPastDate = errors.New("podana data jest w przeszłości")
	// ErrTooLong means the entry body exceeds the configured cap.
	ErrTooLong = errors.New("treść jest za długa")
	// ErrNotFound means no entry carries the requested id.
	ErrNotFound = errors.New("nie znaleziono wpisu o podanym ID")
	// ErrWrongType means the id points at an entry of the other kind.
	ErrWrongType = errors.New("wpis o podanym ID jest innego typu")
	// ErrNoChanges means an edit request carried no fields to change.
	ErrNoChanges = errors.New("brak zmian do wprowadzenia")
	// ErrUnknownSubject means the subject name matches no catalog entry.
	ErrUnknownSubject = errors.New("nieznany przedmiot")
)
