// Package notify delivers formatted alert and report text to the
// configured notification channel.
//
// The evaluator hands over fully formatted subject/body pairs; this
// package only owns transport. A webhook URL gets JSON POSTs with a
// unique event ID; without a URL, notifications are written to the log so
// nothing is silently swallowed. Delivery is always best effort.
package notify
