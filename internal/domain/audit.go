package domain

// AuditEvent is the structured event emitted for every financial mutation.
// Delivery is best-effort: the financial transaction never waits on it.
type AuditEvent struct {
	OwnerID    string         `json:"owner_id"`
	ActionType string         `json:"action_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	OldValues  map[string]any `json:"old_values,omitempty"`
	NewValues  map[string]any `json:"new_values,omitempty"`
	IP         string         `json:"ip,omitempty"`
}
