package domain

import "time"

// AccountCreatedEvent represents the payload for accounts.account.created messages.
type AccountCreatedEvent struct {
	EventID   string
	AccountID string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	CreatedBy *string
	Metadata  map[string]any
}

// AccountStateChangedEvent represents the payload for accounts.account.state_changed
// messages, covering delete, restore, block, and unblock transitions.
type AccountStateChangedEvent struct {
	EventID    string
	AccountID  string
	Transition string
	Deleted    bool
	Blocked    bool
	ChangedAt  time.Time
	ChangedBy  *string
	Metadata   map[string]any
}

// AccountLoginEvent represents the payload for accounts.account.login messages.
type AccountLoginEvent struct {
	EventID   string
	AccountID string
	Email     string
	IP        string
	LoginAt   time.Time
	Metadata  map[string]any
}
