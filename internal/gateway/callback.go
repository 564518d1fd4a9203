package gateway

// CallbackNotification is the form-encoded payload the gateway POSTs to the
// callback endpoint. Required fields are enforced at bind time; everything
// else is passed through to the audit log only.
type CallbackNotification struct {
	MerchantOID      string `form:"merchant_oid" binding:"required"`
	Status           string `form:"status" binding:"required"`
	TotalAmount      string `form:"total_amount" binding:"required,numeric"`
	Hash             string `form:"hash" binding:"required"`
	FailedReasonCode string `form:"failed_reason_code"`
	FailedReasonMsg  string `form:"failed_reason_msg"`
	TestMode         string `form:"test_mode"`
	PaymentType      string `form:"payment_type"`
	Currency         string `form:"currency"`
	PaymentAmount    string `form:"payment_amount"`
}

// StatusSuccess is the gateway's marker for a successful charge; any other
// status value maps to a failed outcome.
const StatusSuccess = "success"

// Succeeded reports whether the gateway-reported status maps to a completed
// payment.
func (n *CallbackNotification) Succeeded() bool {
	return n.Status == StatusSuccess
}
