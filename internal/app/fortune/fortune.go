// Package fortune picks a daily fortune that stays fixed for a user for the whole day.
package fortune

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jonboulle/clockwork"
)

var fortunes = []string{
	"Today is your lucky day, everything will go smoothly!",
	"There may be small setbacks, but overall it is a good day.",
	"Keep a low profile today and avoid unnecessary risks.",
	"Your wealth is rising, an unexpected windfall may arrive.",
	"Romance is in the air, pay attention to the people around you!",
	"Your work luck is excellent, a great day to show what you can do.",
	"Take care of your health, rest more and drink plenty of water.",
	"A helpful person will appear, remember to be grateful.",
	"Your mind is clear, a good day for important decisions.",
	"You will be popular today, a good time for social activities.",
}

// Teller draws fortunes against a clock so tests can pin the date.
type Teller struct {
	clock clockwork.Clock
}

func NewTeller(clock clockwork.Clock) *Teller {
	return &Teller{clock: clock}
}

// Today returns the fortune of username for the teller's current local date.
func (t *Teller) Today(username string) string {
	return Pick(username, t.clock.Now())
}

// Pick is a pure function of the username and the calendar date of day.
func Pick(username string, day time.Time) string {
	h := fnv.New64a()
	h.Write([]byte(username))
	h.Write([]byte(day.Format("20060102")))
	return fortunes[h.Sum64()%uint64(len(fortunes))]
}

// Format renders the reply line shown to the user.
func Format(username, fortune string) string {
	return fmt.Sprintf("System: %s's fortune today - %s", username, fortune)
}
