package game

import (
	"time"

	"github.com/MinecAnton209/durak-online-sub001/internal/models"
)

// SeatStatus tracks the connection state of an occupied seat. A dropped
// connection moves the seat to grace, not straight to vacated; the hand,
// role and host flag survive the window untouched.
type SeatStatus uint8

const (
	SeatConnected SeatStatus = iota
	SeatGrace
	SeatVacated
)

func (s SeatStatus) String() string {
	switch s {
	case SeatGrace:
		return "grace"
	case SeatVacated:
		return "vacated"
	}
	return "connected"
}

// Seat is one occupied slot at the table. The slice order inside Session
// defines the attack rotation; Index is the engine seat number.
type Seat struct {
	User        models.User
	Index       int
	Host        bool
	Status      SeatStatus
	RematchVote bool

	graceTimer *time.Timer
}

func (s *Seat) stopGraceTimer() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}
