package facility

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

const (
	MinRoomNumber = 1
	MaxRoomNumber = 9999
)

type Unit struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	RoomRangeStart int       `json:"room_range_start"`
	RoomRangeEnd   int       `json:"room_range_end"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *Unit) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" || len(u.Name) > 40 {
		return apperr.Validationf("A unit name is required (at most 40 characters)")
	}
	if u.RoomRangeStart < MinRoomNumber || u.RoomRangeEnd > MaxRoomNumber || u.RoomRangeStart > u.RoomRangeEnd {
		return apperr.Validationf("Room range must satisfy %d <= start <= end <= %d", MinRoomNumber, MaxRoomNumber)
	}
	return nil
}

// Contains reports whether number falls inside the unit's room range.
func (u *Unit) Contains(number int) bool {
	return number >= u.RoomRangeStart && number <= u.RoomRangeEnd
}

type Room struct {
	ID         uuid.UUID `json:"id"`
	UnitID     uuid.UUID `json:"unit_id"`
	UnitName   string    `json:"unit_name"`
	RoomNumber int       `json:"room_number"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
