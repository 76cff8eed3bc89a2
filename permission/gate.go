// Package permission maps an actor's attributes to a trust level and
// authorizes mutating archive operations against a configured threshold.
package permission

import "errors"

// Level is an actor's resolved trust level.
type Level int

const (
	LevelDefault Level = 1
	LevelTrusted Level = 2
	LevelAdmin   Level = 3
	LevelOwner   Level = 4
	// LevelElevated is never derivable from role flags alone; it must be
	// supplied by an external elevated-identity check.
	LevelElevated Level = 5
)

// Role flag values as delivered by the chat gateway.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleTrusted = "trusted"
)

// ErrDenied reports a mutation attempted below the configured threshold.
var ErrDenied = errors.New("permission: denied")

// FromRoles resolves a level from role flags. Direct/private context or
// absent role information yields the default level; otherwise the highest
// matching role wins.
func FromRoles(roleFlags []string, isDirect bool) Level {
	if isDirect || len(roleFlags) == 0 {
		return LevelDefault
	}
	level := LevelDefault
	for _, flag := range roleFlags {
		var l Level
		switch flag {
		case RoleOwner:
			l = LevelOwner
		case RoleAdmin:
			l = LevelAdmin
		case RoleTrusted:
			l = LevelTrusted
		default:
			continue
		}
		if l > level {
			level = l
		}
	}
	return level
}

// Authorize reports whether a level satisfies the threshold. Thresholds are
// clamped to [1,5] at configuration load.
func Authorize(level Level, threshold int) bool {
	return int(level) >= threshold
}
