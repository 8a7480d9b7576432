// Package queue defines message payloads exchanged over the message broker.
package queue

// PasswordResetQueue is the durable queue carrying reset notifications.
const PasswordResetQueue = "user.password_reset"

// PasswordResetRequestedEvent is published when forgot-password resolves
// to an existing account. The consumer (the stand-in for a mail sender)
// is the only place the reset token ever travels to; it is never returned
// to the HTTP caller.
type PasswordResetRequestedEvent struct {
	Email       string `json:"email"`
	ResetToken  string `json:"reset_token"`
	ExpiresAt   string `json:"expires_at"`
	RequestedAt string `json:"requested_at"`
}
