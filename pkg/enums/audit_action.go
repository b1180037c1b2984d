package enums

// AuditAction identifies the mutation recorded by an audit entry.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionEdit   AuditAction = "edit"
	AuditActionDelete AuditAction = "delete"
)

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreate, AuditActionEdit, AuditActionDelete:
		return true
	}
	return false
}
