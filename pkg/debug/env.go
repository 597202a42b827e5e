package debug

import "os"

const (
	DebugShowTokensKey   = "DEBUG_SHOW_TOKENS"
	DebugShowRequestsKey = "DEBUG_SHOW_REQUESTS"
)

func isDebugShowTokensSet() bool {
	return os.Getenv(DebugShowTokensKey) == "true"
}

func isDebugShowRequestsSet() bool {
	return os.Getenv(DebugShowRequestsKey) == "true"
}
