package customers

import (
	"context"
	"errors"
	"time"
)

var ErrCustomerNotFound = errors.New("customer mapping not found")

// Mapping links a user to the customer record the gateway keeps for them.
type Mapping struct {
	UserID             uint64
	Gateway            string
	ExternalCustomerID string
	Name               string
	Email              string
	Phone              string
	CreatedAt          time.Time
}

type Customers interface {
	Get(ctx context.Context, userID uint64, gateway string) (Mapping, error)
	// Save keeps the first mapping stored for (user, gateway) and returns it.
	Save(ctx context.Context, m Mapping) (Mapping, error)
}
