package types

// Prefs are small durable user preferences, independent of any session.
type Prefs struct {
	VoiceEnabled   bool `json:"voice_enabled"`
	OnboardingSeen bool `json:"onboarding_seen"`
}
