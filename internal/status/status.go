// Package status canonicalizes task status and priority strings. Values
// arrive from several clients with different spellings ("Completed",
// "in-progress"), so every comparison goes through Normalize first.
package status

import (
	"strings"
	"time"
)

// Canonical task statuses.
const (
	Todo       = "todo"
	InProgress = "in_progress"
	Review     = "review"
	Blocked    = "blocked"
	Done       = "done"
)

// Canonical priorities.
const (
	Low    = "low"
	Medium = "medium"
	High   = "high"
	Urgent = "urgent"
)

// Statuses and Priorities list the canonical values in workflow order.
var (
	Statuses   = []string{Todo, InProgress, Review, Blocked, Done}
	Priorities = []string{Low, Medium, High, Urgent}
)

func canonical(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// Normalize maps a free-form status onto the canonical set. Unknown values
// pass through in canonical form.
func Normalize(s string) string {
	switch c := canonical(s); c {
	case "completed":
		return Done
	case "inprogress", "in_progress":
		return InProgress
	default:
		return c
	}
}

// NormalizePriority applies the same canonical form to priorities.
func NormalizePriority(p string) string {
	return canonical(p)
}

// Known reports whether s normalizes to a canonical status.
func Known(s string) bool {
	return contains(Statuses, Normalize(s))
}

// KnownPriority reports whether p normalizes to a canonical priority.
func KnownPriority(p string) bool {
	return contains(Priorities, NormalizePriority(p))
}

func IsCompleted(s string) bool {
	return Normalize(s) == Done
}

// IsInProgress counts review and blocked work as in progress: started but
// not finished.
func IsInProgress(s string) bool {
	switch Normalize(s) {
	case InProgress, Review, Blocked:
		return true
	}
	return false
}

func IsTodo(s string) bool {
	return Normalize(s) == Todo
}

func IsUrgent(p string) bool {
	return NormalizePriority(p) == Urgent
}

// IsOverdue reports whether a task is at risk: not completed and either
// past its due date (by calendar day, relative to today) or urgent.
func IsOverdue(taskStatus, priority string, due *time.Time, today time.Time) bool {
	if IsCompleted(taskStatus) {
		return false
	}
	if IsUrgent(priority) {
		return true
	}
	if due == nil {
		return false
	}
	d := due.In(today.Location())
	dueDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, today.Location())
	return dueDay.Before(today)
}

// CompletedTransition is true only for a not-done to done edge.
func CompletedTransition(oldStatus, newStatus string) bool {
	return !IsCompleted(oldStatus) && IsCompleted(newStatus)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
