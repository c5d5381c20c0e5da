package dto

// Body of POST /run-dispatch.
type DispatchRequest struct {
	OrderIDs []int64 `json:"orderIds"`
	DriverID int64   `json:"deliveryDriverId"`
}

// Ephemeral route summary returned once from a dispatch; not part of the
// persisted run. totalDuration is whole minutes as a string (the dashboard
// renders it as "<totalDuration> min").
type RouteDetailsResponse struct {
	TotalDistance     int     `json:"totalDistance"`
	TotalDuration     string  `json:"totalDuration"`
	OptimizedSequence []int64 `json:"optimizedSequence"`
}

type DispatchResponse struct {
	Run          RunResponse          `json:"run"`
	RouteDetails RouteDetailsResponse `json:"routeDetails"`
}

// Body of POST /run-execution/complete-stop.
type CompleteStopRequest struct {
	DriverID int64 `json:"deliveryDriverId"`
	StopID   int64 `json:"stopId"`
	RunID    int64 `json:"runId"`
}

type CompleteStopResponse struct {
	Stop      StopResponse `json:"stop"`
	RunStatus string       `json:"runStatus"`
}
