package sales

// Status of a single installment.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// Installment transitions are one-directional: a paid installment never goes
// back to pending.
var validNext = map[Status]map[Status]bool{
	StatusPending: {StatusPaid: true},
	StatusPaid:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusPaid
}

// InstallmentField is the closed set of updatable status columns. Updates go
// through this enum rather than a caller-supplied column name.
type InstallmentField int

const (
	Installment1 InstallmentField = 1
	Installment2 InstallmentField = 2
)

// ParseInstallmentField maps the wire names of the two status fields.
func ParseInstallmentField(s string) (InstallmentField, bool) {
	switch s {
	case "status1":
		return Installment1, true
	case "status2":
		return Installment2, true
	}
	return 0, false
}

func (f InstallmentField) Column() string {
	if f == Installment2 {
		return "status2"
	}
	return "status1"
}
