package models

// Target is a coin candidate placed by the content layer. The engine only
// reads its geometry and radii; they never change mid-hunt.
type Target struct {
	ID                          string  `json:"id" db:"id"`
	Name                        string  `json:"name,omitempty" db:"name"`
	Latitude                    float64 `json:"latitude" db:"latitude"`
	Longitude                   float64 `json:"longitude" db:"longitude"`
	ValueCategory               string  `json:"valueCategory" db:"value_category"`
	CollectionRadiusMeters      float64 `json:"collectionRadiusMeters" db:"collection_radius"`
	MaterializationRadiusMeters float64 `json:"materializationRadiusMeters" db:"materialization_radius"`
	HideRadiusMeters            float64 `json:"hideRadiusMeters" db:"hide_radius"`
}

// ValueCategory constants
const (
	ValueCategoryBronze = "BRONZE"
	ValueCategorySilver = "SILVER"
	ValueCategoryGold   = "GOLD"
)

// ProximityState is the per (session, target) hunt state.
type ProximityState string

const (
	StateDormant      ProximityState = "DORMANT"
	StateApproaching  ProximityState = "APPROACHING"
	StateMaterialized ProximityState = "MATERIALIZED"
	StateCollectible  ProximityState = "COLLECTIBLE"
	StateCollected    ProximityState = "COLLECTED"
)

// TargetSnapshot reports the live hunt state of one target for a session.
type TargetSnapshot struct {
	TargetID       string         `json:"targetId"`
	State          ProximityState `json:"state"`
	DistanceMeters float64        `json:"distanceMeters"`
	BearingDegrees float64        `json:"bearingDegrees"`
	Cardinal       string         `json:"cardinal"`
}
