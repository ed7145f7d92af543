package models

import (
	"time"

	"restaurant-pos/internal/domain"
)

type Stage string

const (
	StageOpen      Stage = "OPEN"
	StageInKitchen Stage = "IN_KITCHEN"
	StageBilled    Stage = "BILLED"
	StageMerged    Stage = "MERGED"
	StagePaid      Stage = "PAID"
	StageVoided    Stage = "VOIDED"
)

// OrderView is the latest known stage of an order, folded from its events.
type OrderView struct {
	OrderID   string           `json:"order_id"`
	Stage     Stage            `json:"stage"`
	LastEvent domain.EventType `json:"last_event"`
	UpdatedAt time.Time        `json:"updated_at"`
}
