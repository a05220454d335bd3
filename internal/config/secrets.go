package config

import "net/url"

// RedactedConfig returns a copy of cfg with secrets replaced by "***", for
// logging the active configuration.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Trader.APIKey)
	redact(&out.Trader.KeyPassword)
	redactURLPassword(&out.Trader.StorageLocation)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Server.APIKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy reference types so the redacted copy cannot mutate the original.
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	}
	if cfg.Paper.Balances != nil {
		out.Paper.Balances = make(map[string]float64, len(cfg.Paper.Balances))
		for k, v := range cfg.Paper.Balances {
			out.Paper.Balances[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

// redactURLPassword masks the password of a connection URL, keeping host
// and database visible.
func redactURLPassword(s *string) {
	u, err := url.Parse(*s)
	if err != nil || u.User == nil {
		return
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), redacted)
		*s = u.String()
	}
}
