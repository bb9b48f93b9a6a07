package domain

// Event is the subset of a conference event the reports need.
type Event struct {
	ID     int64
	Title  string
	Tracks []Track
	Groups []TrackGroup
}

type Track struct {
	ID       int64
	Title    string
	Code     string
	GroupID  *int64 // nil when the track is not part of a group
	Position int
}

type TrackGroup struct {
	ID       int64
	Title    string
	Position int
}

// TrackKey addresses either a track or a track group in roll-up mappings.
type TrackKey struct {
	Group bool
	ID    int64
}

func TrackNode(id int64) TrackKey { return TrackKey{ID: id} }
func GroupNode(id int64) TrackKey { return TrackKey{Group: true, ID: id} }

// TrackByID returns the track with the given id, if any.
func (e Event) TrackByID(id int64) (Track, bool) {
	for _, t := range e.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}
