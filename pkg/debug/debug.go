package debug

// IsDebugShowTokens reports whether token values may be written to logs.
func IsDebugShowTokens() bool {
	return isDebugShowTokensSet()
}

func IsDebugShowRequests() bool {
	return isDebugShowRequestsSet()
}

// Redact returns s when token logging is enabled and a fixed placeholder otherwise.
func Redact(s string) string {
	if IsDebugShowTokens() {
		return s
	}
	if s == "" {
		return ""
	}
	return "[redacted]"
}
