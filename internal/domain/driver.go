package domain

// Driver roster status wire/database strings.
type DriverStatus string

const (
	DriverActive   DriverStatus = "ATIVO"
	DriverInactive DriverStatus = "INATIVO"
)

// Driver is a delivery person. Only ATIVO drivers are eligible for new run
// assignment, and a driver holds at most one EM_ANDAMENTO run at a time
// (enforced by a partial unique index, not in memory).
type Driver struct {
	ID     int64
	Name   string
	Phone  string
	Status DriverStatus
}

// Available reports roster-level eligibility for a new run. The single
// active-run constraint is checked transactionally at dispatch time.
func (d *Driver) Available() bool {
	return d.Status == DriverActive
}
