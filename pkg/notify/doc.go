// Package notify delivers threshold-breach alerts to registered email
// recipients over SMTP.
//
// Delivery is deliberately simple: one message per recipient, each attempt
// independent. A failure for one recipient never blocks the others and
// never fails the reconciliation cycle; outcomes are reported per
// recipient. There is no retry and no cooldown: every cycle where the
// balance sits at or below the threshold re-sends to all recipients.
package notify
