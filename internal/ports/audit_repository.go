package ports

import (
	"context"
	"time"
)

type AuditAction string

const (
	AuditCreacion     AuditAction = "CREACION"
	AuditConsulta     AuditAction = "CONSULTA"
	AuditModificacion AuditAction = "MODIFICACION"
	AuditAnulacion    AuditAction = "ANULACION"
	AuditRenderizado  AuditAction = "RENDERIZADO"
)

type AccessAction string

const (
	AccessInicioAplicacion    AccessAction = "INICIO_APLICACION"
	AccessLogin               AccessAction = "LOGIN"
	AccessCrearReceta         AccessAction = "CREAR_RECETA"
	AccessAbrirPDF            AccessAction = "ABRIR_PDF"
	AccessBuscarReceta        AccessAction = "BUSCAR_RECETA"
	AccessExportarCSV         AccessAction = "EXPORTAR_CSV"
	AccessVerificarIntegridad AccessAction = "VERIFICAR_INTEGRIDAD"
	AccessCrearRespaldo       AccessAction = "CREAR_RESPALDO"
	AccessAnularReceta        AccessAction = "ANULAR_RECETA"
	AccessVerBitacora         AccessAction = "VER_BITACORA_ACCESOS"
	AccessVerAuditoria        AccessAction = "VER_AUDITORIA_RECETAS"
)

type AccessResult string

const (
	ResultExitoso      AccessResult = "EXITOSO"
	ResultFallido      AccessResult = "FALLIDO"
	ResultError        AccessResult = "ERROR"
	ResultNoEncontrado AccessResult = "NO_ENCONTRADO"
)

// AuditEvent is an append-only entry tied to one prescription number.
type AuditEvent struct {
	ID           string
	RecetaNumero string
	Accion       AuditAction
	Usuario      string
	FechaHora    time.Time
	IPAddress    string
	Detalles     string
	HashAnterior string
	HashNuevo    string
}

// AccessEvent is an append-only entry for logins and sensitive actions.
type AccessEvent struct {
	ID        string
	Usuario   string
	Accion    AccessAction
	FechaHora time.Time
	IPAddress string
	Detalles  string
	Resultado AccessResult
}

type AuditFilter struct {
	RecetaNumero string
	Limit        int
}

type AuditRepository interface {
	AppendAudit(ctx context.Context, event AuditEvent) error
	AppendAccess(ctx context.Context, event AccessEvent) error
	// ListAudit returns newest entries first.
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
	ListAccess(ctx context.Context, limit int) ([]AccessEvent, error)
}
