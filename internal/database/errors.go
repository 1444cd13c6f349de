package database

import "errors"

var (
	// ErrSlotNotFound is returned when the requested slot does not exist.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrUserNotFound is returned when the requested user record does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSlotTaken is returned when a booking races against another client
	// and loses, or targets an already booked slot.
	ErrSlotTaken = errors.New("slot is already booked")

	// ErrSlotExpired is returned when a booking targets a slot whose start
	// time has already passed.
	ErrSlotExpired = errors.New("slot start time has passed")

	// ErrSlotNotBooked is returned when a cancellation targets an open slot.
	ErrSlotNotBooked = errors.New("slot is not booked")

	// ErrNotOwner is returned when a cancellation comes from a client other
	// than the one holding the slot.
	ErrNotOwner = errors.New("slot is booked by another client")
)
