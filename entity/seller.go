package entity

type Seller struct {
	SellerID     string `json:"seller_id" db:"seller_id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	// Quota is the ceiling on tickets this seller may ever generate.
	// Consumption is cumulative; revoking a ticket does not replenish it.
	Quota int `json:"quota" db:"quota"`
	// TicketsSold is a cached counter kept for reporting. Quota gating always
	// recomputes the live count inside the generating transaction.
	TicketsSold int    `json:"tickets_sold" db:"tickets_sold"`
	Active      bool   `json:"active" db:"active"`
	EventID     string `json:"event_id" db:"event_id"`
	CreatedBy   string `json:"created_by" db:"created_by"`
}
