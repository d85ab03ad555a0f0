package models

import (
	"errors"
	"time"
)

// NotificationType is a tag from one of the two closed role vocabularies.
type NotificationType string

// parent (padre) vocabulary
const (
	TypeNuevaTarea           NotificationType = "NUEVA_TAREA"
	TypeTareaRevisada        NotificationType = "TAREA_REVISADA"
	TypeSesionProgramada     NotificationType = "SESION_PROGRAMADA"
	TypeSesionReprogramada   NotificationType = "SESION_REPROGRAMADA"
	TypeSesionCancelada      NotificationType = "SESION_CANCELADA"
	TypeRecordatorioSesion   NotificationType = "RECORDATORIO_SESION"
	TypePagoPendiente        NotificationType = "PAGO_PENDIENTE"
	TypePagoConfirmado       NotificationType = "PAGO_CONFIRMADO"
	TypeHistorialActualizado NotificationType = "HISTORIAL_ACTUALIZADO"
	TypeDocumentoNuevo       NotificationType = "DOCUMENTO_NUEVO"
)

// therapist (terapeuta) vocabulary
const (
	TypeTareaEntregada      NotificationType = "TAREA_ENTREGADA"
	TypeNuevaSesionAsignada NotificationType = "NUEVA_SESION_ASIGNADA"
	TypeCancelacionPadre    NotificationType = "CANCELACION_PADRE"
	TypeNuevoPaciente       NotificationType = "NUEVO_PACIENTE"
	TypeReportePendiente    NotificationType = "REPORTE_PENDIENTE"
	TypeMensajeColega       NotificationType = "MENSAJE_COLEGA"
	TypeEventoCentro        NotificationType = "EVENTO_CENTRO"
)

var parentVocabulary = map[NotificationType]struct{}{
	TypeNuevaTarea:           {},
	TypeTareaRevisada:        {},
	TypeSesionProgramada:     {},
	TypeSesionReprogramada:   {},
	TypeSesionCancelada:      {},
	TypeRecordatorioSesion:   {},
	TypePagoPendiente:        {},
	TypePagoConfirmado:       {},
	TypeHistorialActualizado: {},
	TypeDocumentoNuevo:       {},
}

var therapistVocabulary = map[NotificationType]struct{}{
	TypeTareaEntregada:      {},
	TypeNuevaSesionAsignada: {},
	TypeCancelacionPadre:    {},
	TypeNuevoPaciente:       {},
	TypeReportePendiente:    {},
	TypeMensajeColega:       {},
	TypeEventoCentro:        {},
}

// BelongsTo reports whether t is part of the role's vocabulary.
func (t NotificationType) BelongsTo(role Role) bool {
	switch role {
	case RoleParent:
		_, ok := parentVocabulary[t]
		return ok
	case RoleTherapist:
		_, ok := therapistVocabulary[t]
		return ok
	}
	return false
}

// Vocabulary returns the tags valid for a role, nil for roles without a feed.
func Vocabulary(role Role) []NotificationType {
	var src map[NotificationType]struct{}
	switch role {
	case RoleParent:
		src = parentVocabulary
	case RoleTherapist:
		src = therapistVocabulary
	default:
		return nil
	}
	out := make([]NotificationType, 0, len(src))
	for t := range src {
		out = append(out, t)
	}
	return out
}

// NotificationMetadata links a notification to the entity it talks about.
type NotificationMetadata struct {
	EntidadID   *int64  `json:"entidadId,omitempty"`
	EntidadTipo *string `json:"entidadTipo,omitempty"`
	Accion      *string `json:"accion,omitempty"`
	Prioridad   *string `json:"prioridad,omitempty"`
}

// Notification is the shared envelope for both role vocabularies.
type Notification struct {
	ID        int64                 `json:"id"`
	UsuarioID int64                 `json:"usuarioId"`
	Mensaje   string                `json:"mensaje"`
	Tipo      NotificationType      `json:"tipo"`
	Fecha     time.Time             `json:"fecha"`
	Leida     bool                  `json:"leida"`
	Metadata  *NotificationMetadata `json:"metadata,omitempty"`
}

var (
	ErrMissingID   = errors.New("notification has no id")
	ErrMissingType = errors.New("notification has no type")
)

// Validate checks the fields every push frame must carry.
func (n *Notification) Validate() error {
	if n.ID == 0 {
		return ErrMissingID
	}
	if n.Tipo == "" {
		return ErrMissingType
	}
	return nil
}

// MarkAllResult is the backend reply to a bulk mark-read.
type MarkAllResult struct {
	Marcadas int `json:"marcadas"`
}
