// Package services implements the driving port interfaces.
// Services contain the sync logic: paginated fetching with retries,
// ticket filtering, team grouping, webhook emission and count validation.
// They call out only through driven ports.
package services
