package domain

import "time"

// AppVersion describes the iOS build distributed through the OTA install page.
type AppVersion struct {
	VersionID string    `json:"id" dynamodbav:"version_id"`
	Version   string    `json:"version" dynamodbav:"version"`
	BundleID  string    `json:"bundle_id" dynamodbav:"bundle_id"`
	IPAKey    string    `json:"ipa_key" dynamodbav:"ipa_key"`
	Notes     string    `json:"notes,omitempty" dynamodbav:"notes"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

type AppVersionInput struct {
	Version  string `json:"version" validate:"required"`
	BundleID string `json:"bundle_id"`
	IPAKey   string `json:"ipa_key"`
	Notes    string `json:"notes"`
}
