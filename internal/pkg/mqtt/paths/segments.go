package paths

// Topic segments of the parameter link. They are the contract between the
// ground station and vehicle agents; changing them breaks deployed agents.

// GroupGCS is the shared subscription group of ground station replicas.
const GroupGCS = "paramsync-gcs"

// Downstream: ground station -> vehicle
const (
	// ParamDown carries CBOR encoded link messages addressed to one vehicle.
	// Pattern: {root}/param/down/{vehicleID}
	ParamDown = "param/down"
)

// Upstream: vehicle -> ground station
const (
	// ParamUp carries CBOR encoded link messages emitted by one vehicle,
	// heartbeats included.
	// Pattern: {root}/param/up/{vehicleID}
	ParamUp = "param/up"

	// Online is the retained last-will topic announcing that a vehicle agent dropped.
	// Payload: CBOR HEARTBEAT with the offline flag set.
	// Pattern: {root}/online/{vehicleID}
	Online = "online"
)
