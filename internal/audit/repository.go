package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

// Entities recorded in audit_logs.
const (
	EntityBooking = "booking"
	EntityPayment = "payment"
	EntityTeam    = "team"
	EntityTicket  = "support_ticket"
	EntityUser    = "user"
)

// Insert writes an audit row inside the caller's transaction. Actor is
// "<role>:<user id>" for people and a fixed name for system callers.
func Insert(ctx context.Context, tx pgx.Tx, actor, entity, entityID, action string, metadata any) error {
	var s *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO audit_logs (actor, entity, entity_id, action, metadata)
VALUES ($1, $2, $3, $4, CAST($5 AS jsonb))
`
	_, err := tx.Exec(ctx, q, actor, entity, entityID, action, s)
	return err
}

func Actor(role, userID string) string {
	return role + ":" + userID
}
