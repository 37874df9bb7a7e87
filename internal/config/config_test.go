package config

import "testing"

func TestApplyDefaults(t *testing.T) {
	t.Run("zero config gets the policy defaults", func(t *testing.T) {
		var cfg Config
		applyDefaults(&cfg)

		if cfg.Link.ExpiryDays != 7 {
			t.Errorf("link expiry days = %d, want 7", cfg.Link.ExpiryDays)
		}
		if cfg.OTP.TTLMinutes != 10 {
			t.Errorf("otp ttl minutes = %d, want 10", cfg.OTP.TTLMinutes)
		}
		if cfg.OTP.MaxAttempts != 5 {
			t.Errorf("otp max attempts = %d, want 5", cfg.OTP.MaxAttempts)
		}
		if cfg.WizeChat.TimeoutSeconds != 30 {
			t.Errorf("wizechat timeout seconds = %d, want 30", cfg.WizeChat.TimeoutSeconds)
		}
		if cfg.Storage.OriginalsFolder != "originals" || cfg.Storage.SignedFolder != "signed" {
			t.Errorf("storage folders = %q/%q, want originals/signed",
				cfg.Storage.OriginalsFolder, cfg.Storage.SignedFolder)
		}
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		cfg := Config{
			Link:     LinkConfig{ExpiryDays: 14},
			OTP:      OTPConfig{TTLMinutes: 5, MaxAttempts: 3},
			WizeChat: WizeChatConfig{TimeoutSeconds: 10},
		}
		applyDefaults(&cfg)

		if cfg.Link.ExpiryDays != 14 {
			t.Errorf("link expiry days = %d, want 14", cfg.Link.ExpiryDays)
		}
		if cfg.OTP.TTLMinutes != 5 || cfg.OTP.MaxAttempts != 3 {
			t.Errorf("otp config = %+v, want the configured values", cfg.OTP)
		}
		if cfg.WizeChat.TimeoutSeconds != 10 {
			t.Errorf("wizechat timeout seconds = %d, want 10", cfg.WizeChat.TimeoutSeconds)
		}
	})
}
