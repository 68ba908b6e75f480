package dynamo

// DynamoDB attribute names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	fieldIdentity  = "identity"
	fieldSessionID = "session_id"
	fieldPhone     = "phone"
	fieldProductID = "product_id"
	fieldOrderID   = "order_id"
	fieldVersionID = "version_id"

	fieldEnable    = "enable"
	fieldAttempts  = "attempts"
	fieldCodeHash  = "code_hash"
	fieldStatus    = "status"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// GSI names.
const (
	indexOrdersByUser  = "user_id-created_at-index"
	indexOrdersByEmail = "customer_email-created_at-index"
	indexSessionsUser  = "user_id-index"
)
