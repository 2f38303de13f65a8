package physics

// Ball is the live state of one simulated ball. Radius and mass never
// change after construction.
type Ball struct {
	TeamIndex int     `json:"team_index" msgpack:"ti"`
	Team      string  `json:"team" msgpack:"t"`
	Name      string  `json:"name" msgpack:"n"`
	Position  Vec2    `json:"position" msgpack:"p"`
	Velocity  Vec2    `json:"velocity" msgpack:"v"`
	Radius    float64 `json:"radius" msgpack:"r"`
	Mass      float64 `json:"mass" msgpack:"m"`
}

func (b Ball) invMass() float64 {
	return 1.0 / b.Mass
}

// Snapshot is an independent copy of every ball at one output frame.
type Snapshot struct {
	FrameIndex int     `json:"frame_index" msgpack:"f"`
	Time       float64 `json:"time" msgpack:"t"`
	Balls      []Ball  `json:"balls" msgpack:"b"`
}
