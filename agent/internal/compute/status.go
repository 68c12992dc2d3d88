package compute

import (
	"strings"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// Column names recognised in the participations dataset.
const (
	ColStatus       = "Estado"
	ColCourse       = "Curso"
	ColCourseName   = "NombreCurso"
	ColParticipant  = "Participante"
	ColEmployee     = "Empleado"
	ColStart        = "FechaInicio"
	ColClose        = "FechaCierre"
	ColCriticality  = "Criticidad"
	ColRegistration = "RegistroLMS"
)

// Status is a canonical record status.
type Status string

const (
	StatusProposed            Status = "P"
	StatusPlanned             Status = "PL"
	StatusInProgress          Status = "EP"
	StatusPendingRegistration Status = "PR"
	StatusClosed              Status = "C"
	StatusUnknown             Status = ""
)

// Statuses lists the canonical statuses in workflow order.
var Statuses = []Status{
	StatusProposed,
	StatusPlanned,
	StatusInProgress,
	StatusPendingRegistration,
	StatusClosed,
}

var statusNames = map[Status]string{
	StatusProposed:            "Proposed",
	StatusPlanned:             "Planned",
	StatusInProgress:          "In Progress",
	StatusPendingRegistration: "Pending Registration",
	StatusClosed:              "Closed",
}

// Name returns the English display name.
func (s Status) Name() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "Other"
}

// statusAliases maps lower-cased codes and long forms to a Status.
var statusAliases = map[string]Status{
	"p":                    StatusProposed,
	"propuesto":            StatusProposed,
	"proposed":             StatusProposed,
	"pl":                   StatusPlanned,
	"planificado":          StatusPlanned,
	"planned":              StatusPlanned,
	"ep":                   StatusInProgress,
	"en progreso":          StatusInProgress,
	"in progress":          StatusInProgress,
	"pr":                   StatusPendingRegistration,
	"pendiente":            StatusPendingRegistration,
	"pendiente registro":   StatusPendingRegistration,
	"pend. registro":       StatusPendingRegistration,
	"pending":              StatusPendingRegistration,
	"pending registration": StatusPendingRegistration,
	"c":                    StatusClosed,
	"cerrado":              StatusClosed,
	"closed":               StatusClosed,
}

// ParseStatus maps a raw Estado value to its canonical Status, or
// StatusUnknown.
func ParseStatus(raw string) Status {
	return statusAliases[normalize(raw)]
}

func statusOf(r types.Row) Status {
	return ParseStatus(r[ColStatus])
}

var criticalValues = map[string]bool{
	"alta":     true,
	"crítico":  true,
	"critico":  true,
	"high":     true,
	"critical": true,
}

func isCritical(r types.Row) bool {
	return criticalValues[normalize(r[ColCriticality])]
}

var registeredValues = map[string]bool{
	"sí":  true,
	"si":  true,
	"yes": true,
}

func isRegistered(r types.Row) bool {
	return registeredValues[normalize(r[ColRegistration])]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
