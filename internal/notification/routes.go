package notification

import (
	"fmt"

	"terapiahub/internal/models"
)

// sections under the role prefix
var parentSections = map[models.NotificationType]string{
	models.TypeNuevaTarea:           "tareas",
	models.TypeTareaRevisada:        "tareas",
	models.TypeSesionProgramada:     "sesiones",
	models.TypeSesionReprogramada:   "sesiones",
	models.TypeSesionCancelada:      "sesiones",
	models.TypeRecordatorioSesion:   "sesiones",
	models.TypePagoPendiente:        "pagos",
	models.TypePagoConfirmado:       "pagos",
	models.TypeHistorialActualizado: "historial",
	models.TypeDocumentoNuevo:       "historial",
}

var therapistSections = map[models.NotificationType]string{
	models.TypeTareaEntregada:      "tareas",
	models.TypeNuevaSesionAsignada: "sesiones",
	models.TypeCancelacionPadre:    "sesiones",
	models.TypeNuevoPaciente:       "historial",
	models.TypeReportePendiente:    "historial",
}

// peer and center-event notifications always go to therapist pages
var therapistFixedRoutes = map[models.NotificationType]string{
	models.TypeMensajeColega: "/terapeuta/colegas",
	models.TypeEventoCentro:  "/terapeuta/eventos",
}

// Route returns where selecting a notification of type t should navigate
// for a user with the given role. ok is false when there is nowhere to go.
func Route(role models.Role, t models.NotificationType) (path string, ok bool) {
	switch role {
	case models.RoleParent:
		if section, found := parentSections[t]; found {
			return fmt.Sprintf("/%s/%s", role, section), true
		}
	case models.RoleTherapist:
		if fixed, found := therapistFixedRoutes[t]; found {
			return fixed, true
		}
		if section, found := therapistSections[t]; found {
			return fmt.Sprintf("/%s/%s", role, section), true
		}
	}
	return "", false
}
