package notification

import "terapiahub/internal/models"

// Display is how a notification type is presented: icon, title and a color
// class understood by the renderer.
type Display struct {
	Icon  string
	Title string
	Color string
}

// DefaultDisplay is used for tags outside the role's vocabulary.
var DefaultDisplay = Display{Icon: "🔔", Title: "Notificación", Color: "default"}

var parentDisplay = map[models.NotificationType]Display{
	models.TypeNuevaTarea:           {"📝", "Nueva tarea", "info"},
	models.TypeTareaRevisada:        {"✅", "Tarea revisada", "success"},
	models.TypeSesionProgramada:     {"📅", "Sesión programada", "info"},
	models.TypeSesionReprogramada:   {"🔄", "Sesión reprogramada", "warning"},
	models.TypeSesionCancelada:      {"❌", "Sesión cancelada", "danger"},
	models.TypeRecordatorioSesion:   {"⏰", "Recordatorio de sesión", "warning"},
	models.TypePagoPendiente:        {"💳", "Pago pendiente", "warning"},
	models.TypePagoConfirmado:       {"💰", "Pago confirmado", "success"},
	models.TypeHistorialActualizado: {"📋", "Historial actualizado", "info"},
	models.TypeDocumentoNuevo:       {"📄", "Nuevo documento", "info"},
}

var therapistDisplay = map[models.NotificationType]Display{
	models.TypeTareaEntregada:      {"📥", "Tarea entregada", "success"},
	models.TypeNuevaSesionAsignada: {"📅", "Nueva sesión asignada", "info"},
	models.TypeCancelacionPadre:    {"🚫", "Cancelación del padre", "danger"},
	models.TypeNuevoPaciente:       {"👶", "Nuevo paciente", "info"},
	models.TypeReportePendiente:    {"🗂️", "Reporte pendiente", "warning"},
	models.TypeMensajeColega:       {"💬", "Mensaje de colega", "info"},
	models.TypeEventoCentro:        {"🎉", "Evento del centro", "success"},
}

// Lookup never fails: unknown tags and roles get DefaultDisplay.
func Lookup(role models.Role, t models.NotificationType) Display {
	var table map[models.NotificationType]Display
	switch role {
	case models.RoleParent:
		table = parentDisplay
	case models.RoleTherapist:
		table = therapistDisplay
	}
	if d, ok := table[t]; ok {
		return d
	}
	return DefaultDisplay
}

func Icon(role models.Role, t models.NotificationType) string {
	return Lookup(role, t).Icon
}

func Title(role models.Role, t models.NotificationType) string {
	return Lookup(role, t).Title
}

func Color(role models.Role, t models.NotificationType) string {
	return Lookup(role, t).Color
}
