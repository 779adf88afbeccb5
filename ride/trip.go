package ride

import "slices"

// MinWaypoints is the conceptual minimum route length: departure, midpoint and arrival.
const MinWaypoints = 3

// TripData describes the journey a ride request is about.
type TripData struct {
	TripID string `json:"tripId"`
	// Driver is the driver's ledger address. It falls back to the request's driver id when empty.
	Driver string `json:"driver,omitempty"`
	// Route is the ordered list of waypoints, [departure, midpoint..., arrival].
	Route []string `json:"route"`

	OriginAddress      *string `json:"originAddress,omitempty"`
	DestinationAddress *string `json:"destinationAddress,omitempty"`
	EstimatedMinutes   *int    `json:"estimatedDuration,omitempty"`

	// Optional addresses authorised to mark each checkpoint on the ledger.
	SaidaCheckpoint   *string `json:"saidaCheckpoint,omitempty"`
	MeioCheckpoint    *string `json:"meioCheckpoint,omitempty"`
	ChegadaCheckpoint *string `json:"chegadaCheckpoint,omitempty"`
}

// Clone returns a copy of t that shares no memory with it.
func (t TripData) Clone() TripData {
	t.Route = slices.Clone(t.Route)
	t.OriginAddress = clonePtr(t.OriginAddress)
	t.DestinationAddress = clonePtr(t.DestinationAddress)
	t.EstimatedMinutes = clonePtr(t.EstimatedMinutes)
	t.SaidaCheckpoint = clonePtr(t.SaidaCheckpoint)
	t.MeioCheckpoint = clonePtr(t.MeioCheckpoint)
	t.ChegadaCheckpoint = clonePtr(t.ChegadaCheckpoint)
	return t
}

// PadRoute returns a copy of route extended to at least n waypoints by
// repeating its last entry. An empty route is returned unchanged.
func PadRoute(route []string, n int) []string {
	out := make([]string, len(route), max(len(route), n))
	copy(out, route)
	if len(out) == 0 {
		return out
	}
	for len(out) < n {
		out = append(out, out[len(out)-1])
	}
	return out
}
