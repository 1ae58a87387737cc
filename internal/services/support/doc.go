// Package support implements the hint escalation workflow between support
// specialists and players stuck on adventure steps.
//
// It keeps hint authorship, viewed-state transitions, and progress viewing
// isolated behind an audited domain service so the rest of the platform
// remains the source of truth for users, support requests, and progress.
package support
