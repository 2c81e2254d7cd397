package db

// Table names as constants for type safety
const (
	TableUsers         = "users"
	TableProfiles      = "profiles"
	TableTeam          = "team"
	TableIncidentes    = "incidentes"
	TableAuthzAuditLog = "authz_audit_logs"
)

// Column names for compile-time checking
const (
	// Common columns
	ColID        = "id"
	ColNombre    = "nombre"
	ColCreatedAt = "created_at"

	// Users columns
	ColEmail        = "email"
	ColPasswordHash = "password_hash"

	// Profiles columns. The canonical role column is "role"; the "rol"
	// spelling seen in older call sites is not accepted.
	ColRole = "role"
	ColTeam = "team"

	// Incidentes columns. The owner column keeps its original accented name
	// and must be double-quoted in SQL.
	ColTitulo         = "titulo"
	ColDescripcion    = "descripcion"
	ColTipo           = "tipo"
	ColNivel          = "nivel"
	ColActivoAfectado = "activo_afectado"
	ColEvidencia      = "evidencia"
	ColEstado         = "estado"
	ColDueno          = `"dueño"`
	ColResponsable    = "responsable"

	// Audit log columns
	ColActorID    = "actor_id"
	ColActorRole  = "actor_role"
	ColOperation  = "operation"
	ColEntity     = "entity"
	ColEffect     = "effect"
	ColRule       = "rule"
	ColOccurredAt = "occurred_at"
)
