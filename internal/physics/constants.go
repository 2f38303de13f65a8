package physics

// Engine constants shared by the integrator, the resolvers and the sampler.
const (
	TickRate = 120.0
	DT       = 1.0 / TickRate // fixed simulation tick (120 Hz)

	// Distances at or below Epsilon are treated as coincident and resolved
	// with the fallback normal (1, 0).
	Epsilon = 1e-9
)

// fallbackNormal is used when two centres coincide and no direction exists.
var fallbackNormal = Vec2{X: 1, Y: 0}
