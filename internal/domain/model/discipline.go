package model

// Upgrade disciplines. Each governs which points schedule and upgrade rules
// apply, and groups one or more event disciplines as its scoring surface.
const (
	Road         = "road"
	MountainBike = "mountain_bike"
	Cyclocross   = "cyclocross"
	Track        = "track"
)

// DisciplineMap maps upgrade disciplines to the event disciplines they score.
var DisciplineMap = map[string][]string{
	Road:         {"road", "circuit", "criterium", "gravel", "time_trial", "tour"},
	MountainBike: {"mountain_bike", "downhill", "super_d", "short_track"},
	Cyclocross:   {"cyclocross"},
	Track:        {"track"},
}

// Disciplines returns the known upgrade disciplines.
func Disciplines() []string {
	return []string{Cyclocross, MountainBike, Road, Track}
}

// KnownDiscipline reports whether name is a recognized upgrade discipline.
func KnownDiscipline(name string) bool {
	_, ok := DisciplineMap[name]
	return ok
}

// UpgradeDiscipline returns the upgrade discipline an event discipline
// belongs to, or "" if unmapped.
func UpgradeDiscipline(eventDiscipline string) string {
	for upgrade, events := range DisciplineMap {
		for _, e := range events {
			if e == eventDiscipline {
				return upgrade
			}
		}
	}
	return ""
}

// CategoryFor returns the snapshot's registered category for the given event
// discipline, resolved through the discipline family. Unmapped disciplines
// report 0, which reads as open/elite and therefore never suppresses review.
func (s Snapshot) CategoryFor(eventDiscipline string) int {
	if eventDiscipline == "downhill" {
		return s.DH
	}
	switch UpgradeDiscipline(eventDiscipline) {
	case Road:
		return s.Road
	case MountainBike:
		return s.MTB
	case Cyclocross:
		return s.CCX
	case Track:
		return s.Track
	default:
		return 0
	}
}
