package domain

// PhoneVerification is a pending one-time code for a phone number.
// PK: phone. ExpiresAt is a Unix timestamp used as DynamoDB TTL; the TTL sweeper
// is lazy, so readers must still compare it against the clock.
type PhoneVerification struct {
	Phone       string `json:"phone" dynamodbav:"phone"`
	CodeHash    string `json:"-" dynamodbav:"code_hash"`
	ExpiresAt   int64  `json:"expires_at" dynamodbav:"expires_at"`
	Attempts    int    `json:"attempts" dynamodbav:"attempts"`
	RequestedAt int64  `json:"requested_at" dynamodbav:"requested_at"`
}

type RequestCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}
