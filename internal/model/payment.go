package model

// Payment is a fee record owned by one profile. This client never writes
// payments; they are fetched on demand per student.
type Payment struct {
	ID            string  `json:"id"`
	ProfileID     string  `json:"profile_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Description   string  `json:"description"`
	ReceiptNumber string  `json:"receipt_number"`
	PaymentMethod string  `json:"payment_method"`
	PaymentDate   string  `json:"payment_date"`
	DueDate       string  `json:"due_date"`
}
