package notify

import (
	"testing"
	"time"

	"lessonbook/internal/models"

	"github.com/stretchr/testify/assert"
)

func testSlot() *models.Slot {
	start := time.Date(2024, 3, 4, 15, 35, 0, 0, time.UTC)
	return &models.Slot{
		ID:          "slot-1",
		ProviderID:  "teacher-1",
		Location:    "band room",
		PeriodLabel: "3rd",
		StartTime:   start,
		EndTime:     start.Add(45 * time.Minute),
	}
}

func TestClientReminder(t *testing.T) {
	msg := ClientReminder(testSlot(), &models.User{DisplayName: "Ms. Reed"}, time.UTC)
	assert.Equal(t, "You have a lesson with Ms. Reed starting 3rd (03:35 PM) in the band room", msg)
}

func TestProviderReminder(t *testing.T) {
	msg := ProviderReminder(testSlot(), &models.User{DisplayName: "Sam"}, time.UTC)
	assert.Equal(t, "You have a lesson with Sam starting at 03:35 PM", msg)
}

func TestSignupNotice(t *testing.T) {
	msg := SignupNotice(testSlot(), &models.User{DisplayName: "Sam"}, time.UTC)
	assert.Equal(t, "Sam signed up for your 3rd lesson on March 4th", msg)
}

func TestMessagesRespectLocation(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	assert.NoError(t, err)

	msg := ProviderReminder(testSlot(), &models.User{DisplayName: "Sam"}, chicago)
	assert.Equal(t, "You have a lesson with Sam starting at 09:35 AM", msg)
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd", 31: "31st",
	}
	for n, want := range tests {
		assert.Equal(t, want, ordinal(n))
	}
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", JoinList(nil))
	assert.Equal(t, "flute", JoinList([]string{"flute"}))
	assert.Equal(t, "flute and oboe", JoinList([]string{"flute", "oboe"}))
	assert.Equal(t, "flute, oboe and horn", JoinList([]string{"flute", "oboe", "horn"}))
}
