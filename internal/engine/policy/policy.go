package policy

import (
	"fmt"
	"strings"
)

// Rank is a position in the staff hierarchy. Ordering is significant:
// a higher value always dominates a lower one.
type Rank int

const (
	RankNone Rank = iota
	RankTrainee
	RankJunior
	RankMechanic
	RankSenior
	RankHead
	RankOwner
)

var rankNames = map[Rank]string{
	RankTrainee:  "trainee",
	RankJunior:   "junior",
	RankMechanic: "mechanic",
	RankSenior:   "senior",
	RankHead:     "head",
	RankOwner:    "owner",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "none"
}

// ParseRank maps a canonical rank name to its Rank. Unknown names map to
// RankNone rather than erroring; callers treat RankNone as "not staff".
func ParseRank(name string) Rank {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trainee":
		return RankTrainee
	case "junior":
		return RankJunior
	case "mechanic":
		return RankMechanic
	case "senior":
		return RankSenior
	case "head":
		return RankHead
	case "owner":
		return RankOwner
	}
	return RankNone
}

// Ranks returns all staff ranks in ascending order.
func Ranks() []Rank {
	return []Rank{RankTrainee, RankJunior, RankMechanic, RankSenior, RankHead, RankOwner}
}

// Complexity tiers declared at repair creation.
const (
	TierSimple      = "simple"
	TierMedium      = "medium"
	TierComplex     = "complex"
	TierVeryComplex = "very_complex"
)

// ValidTier reports whether tier is a known complexity tier.
func ValidTier(tier string) bool {
	switch tier {
	case TierSimple, TierMedium, TierComplex, TierVeryComplex:
		return true
	}
	return false
}

// ForbiddenError indicates the actor's ranks do not qualify for a repair
// of the given complexity tier.
type ForbiddenError struct {
	Tier string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("repair tier %s requires a higher rank", e.Tier)
}

// ForbiddenManagementError indicates a staff-management action outside the
// actor's authority.
type ForbiddenManagementError struct {
	Action string
}

func (e ForbiddenManagementError) Error() string {
	return fmt.Sprintf("staff action %s outside your authority", e.Action)
}

// Highest returns the highest rank in the set, or RankNone.
func Highest(ranks []Rank) Rank {
	top := RankNone
	for _, r := range ranks {
		if r > top {
			top = r
		}
	}
	return top
}

// Privileged reports whether the rank bypasses the complexity gate
// entirely (head mechanic and owner).
func Privileged(r Rank) bool {
	return r >= RankHead
}

// minimumFor is the lowest qualifying rank per tier for non-privileged staff.
var minimumFor = map[string]Rank{
	TierSimple:      RankTrainee,
	TierMedium:      RankJunior,
	TierComplex:     RankMechanic,
	TierVeryComplex: RankSenior,
}

// CanHandle reports whether an actor holding ranks may act on a repair of
// the given tier. Head mechanic and owner qualify for every tier; below
// that the tier's minimum rank applies. Unknown tiers fall back to medium,
// matching how unspecified complexity defaults at creation.
func CanHandle(ranks []Rank, tier string) bool {
	top := Highest(ranks)
	if top == RankNone {
		return false
	}
	if Privileged(top) {
		return true
	}
	min, ok := minimumFor[tier]
	if !ok {
		min = minimumFor[TierMedium]
	}
	return top >= min
}

// CanAnnounce reports whether the actor may post garage announcements.
// Announcing is a mechanic-and-up privilege; trainees and juniors talk in
// the workshop, not on the announcements surface.
func CanAnnounce(ranks []Rank) bool {
	return Highest(ranks) >= RankMechanic
}

// CanAppoint reports whether actor may hire or promote someone into target.
// Only the owner touches the head mechanic rank; owner and head mechanic
// manage everything below.
func CanAppoint(actor Rank, target Rank) bool {
	if actor == RankOwner {
		return true
	}
	if actor == RankHead {
		return target < RankHead
	}
	return false
}

// CanRemove reports whether actor may demote or fire someone currently
// holding target rank. The target must sit strictly below the actor's
// authority; the owner is unconstrained.
func CanRemove(actor Rank, target Rank) bool {
	if actor == RankOwner {
		return true
	}
	if actor == RankHead {
		return target < RankHead
	}
	return false
}
