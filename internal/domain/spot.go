package domain

import "time"

type ParkingSpot struct {
	ID           int64
	OwnerID      int64
	Title        string
	Location     string
	PricePerHour Money
	CreatedAt    time.Time
}

func (s *ParkingSpot) Validate() error {
	if s.OwnerID <= 0 {
		return ErrInvalidSpot
	}
	if s.PricePerHour <= 0 {
		return ErrInvalidSpot
	}
	return nil
}
