package memory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

// DefaultMethods is the method enum served when none is configured.
var DefaultMethods = []string{"KO", "SUB", "DEC"}

// FixtureID derives a stable identifier for seeded rows.
func FixtureID(kind string, n int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("fightpicks:%s:%d", kind, n))).String()
}

type fixtureFight struct {
	red, blue string
	rounds    int
}

// loadFixture seeds a deterministic demo card.
// Only called from New, before the store is shared.
func (s *Store) loadFixture() {
	if _, ok := s.enums["method"]; !ok {
		s.enums["method"] = append([]string(nil), DefaultMethods...)
	}

	cards := []struct {
		name, date, status string
		fights             []fixtureFight
	}{
		{
			name: "Fight Night: Reyes vs Okafor", date: "2025-03-08", status: "scheduled",
			fights: []fixtureFight{
				{"Daniel Reyes", "Tunde Okafor", 5},
				{"Mia Lindqvist", "Ana Duarte", 3},
				{"Kenji Mori", "Luis Ortega", 3},
			},
		},
		{
			name: "Championship 12", date: "2025-04-12", status: "scheduled",
			fights: []fixtureFight{
				{"Sofia Marin", "Hana Sato", 5},
				{"Callum Reid", "Omar Haddad", 3},
			},
		},
	}

	fightN := 0
	for i, card := range cards {
		eventID := FixtureID("event", i+1)
		s.tables[backend.TableEvents].rows = append(s.tables[backend.TableEvents].rows, backend.Row{
			"id":     eventID,
			"name":   card.name,
			"date":   card.date,
			"status": card.status,
		})
		for order, f := range card.fights {
			fightN++
			s.tables[backend.TableFights].rows = append(s.tables[backend.TableFights].rows, backend.Row{
				"id":               FixtureID("fight", fightN),
				"event_id":         eventID,
				"red_name":         f.red,
				"blue_name":        f.blue,
				"scheduled_rounds": f.rounds,
				"bout_order":       order + 1,
			})
		}
	}
}
