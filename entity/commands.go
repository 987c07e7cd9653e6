package entity

type ShareTicketLink struct {
	Header        EventHeader `json:"header"`
	TicketID      string      `json:"ticket_id"`
	Method        ShareMethod `json:"method"`
	Destination   string      `json:"destination"`
	CustomMessage string      `json:"custom_message"`
}
