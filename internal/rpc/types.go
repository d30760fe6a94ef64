package rpc

import (
	"strings"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
)

// IsRevert reports whether err is a deterministic failure rather than a
// transport one: an execution revert, or a transaction the node rejects on
// balance or nonce. Retrying either cannot succeed.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	if chain.IsRevert(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient funds") ||
		strings.Contains(msg, "nonce too low")
}

func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}
