// Package queue defines the message payloads exchanged over the broker
// and the background consumer that turns redeemed events into the
// admissions log.
package queue

// CredentialIssuedEvent is published after a credential row is created.
// It carries enough context for downstream consumers (confirmation
// notifications, analytics) without querying the primary database.
type CredentialIssuedEvent struct {
    CredentialID string  `json:"credential_id"`
    Code         string  `json:"code"`
    EventID      *uint64 `json:"event_id,omitempty"`
    PartnerID    *uint64 `json:"partner_id,omitempty"`
    OwnerID      uint64  `json:"owner_id"`
    ProductID    uint64  `json:"product_id"`
    ProductName  string  `json:"product_name"`
    Quantity     uint32  `json:"quantity"`
    IssuedAt     string  `json:"issued_at"`
}

// CredentialRedeemedEvent is published after a successful redemption has
// committed.  Quantity is the units admitted by this scan; Remainder is
// what is left afterwards.
type CredentialRedeemedEvent struct {
    CredentialID string  `json:"credential_id"`
    Code         string  `json:"code"`
    EventID      *uint64 `json:"event_id,omitempty"`
    PartnerID    *uint64 `json:"partner_id,omitempty"`
    OwnerID      uint64  `json:"owner_id"`
    StaffID      uint64  `json:"staff_id"`
    Quantity     uint32  `json:"quantity"`
    Remainder    uint32  `json:"remainder"`
    Status       string  `json:"status"`
    RedeemedAt   string  `json:"redeemed_at"`
}
