// Package mavlink defines the parameter protocol messages exchanged between a
// ground station and a vehicle, their CBOR encoding, and the byte framing used
// on serial telemetry links.
//
// Messages keep MAVLink names and semantics (PARAM_REQUEST_READ,
// PARAM_REQUEST_LIST, PARAM_VALUE, HEARTBEAT) but are carried as CBOR arrays
// of the form [msg_type, system_id, component_id, payload_map].
package mavlink
