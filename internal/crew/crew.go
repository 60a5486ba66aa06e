// Package crew turns roster text into ordered crew lists.
package crew

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adverant/nexus/flightcapture-worker/internal/fields"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

// Positional role lists. The Nth surviving name receives the Nth role.
var (
	CockpitRoles = []models.Role{models.RolePIC, models.RoleRelief, models.RoleSIC, models.RoleRelief2}
	CabinRoles   = []models.Role{models.RoleISM, models.RoleSP, models.RoleFP, models.RoleFA, models.RoleFA2, models.RoleFA3, models.RoleFA4}
)

var seniority = func() map[models.Role]int {
	m := make(map[models.Role]int, len(CockpitRoles)+len(CabinRoles))
	for i, r := range append(append([]models.Role{}, CockpitRoles...), CabinRoles...) {
		m[r] = i
	}
	return m
}()

// Rank returns the seniority rank of a role; unknown roles rank after all known ones.
func Rank(role models.Role) int {
	if r, ok := seniority[role]; ok {
		return r
	}
	return len(seniority)
}

// KnownRole reports whether role has a seniority rank.
func KnownRole(role models.Role) bool {
	_, ok := seniority[role]
	return ok
}

// Sort orders members by seniority in place. Equal ranks keep their input order.
func Sort(members []models.CrewMember) {
	sort.SliceStable(members, func(i, j int) bool {
		return Rank(members[i].Role) < Rank(members[j].Role)
	})
}

// Result is the outcome of parsing one roster.
type Result struct {
	Members []models.CrewMember
	Review  []models.CrewReviewItem
	// Dropped counts names that arrived after every role was assigned.
	Dropped int
}

// Parse reads the roster blocks in ROI order, assigns roles positionally
// and returns the members sorted by seniority. Truncated names are also
// reported for review.
func Parse(blocks []string, roles []models.Role) Result {
	var res Result
	next := 0

	for _, block := range blocks {
		for _, part := range splitParts(block) {
			name, ok := fields.CrewNameToken(part)
			if !ok {
				continue
			}
			if next >= len(roles) {
				res.Dropped++
				continue
			}
			role := roles[next]
			next++

			res.Members = append(res.Members, models.CrewMember{Role: role, Name: name.Name})
			if name.Truncated {
				res.Review = append(res.Review, models.CrewReviewItem{
					Role:          role,
					OriginalText:  name.Original,
					CorrectedText: name.Name,
				})
			}
		}
	}

	Sort(res.Members)
	return res
}

func splitParts(block string) []string {
	return strings.FieldsFunc(block, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
}

// Reassign moves the member called name to role and re-sorts the list.
// Names compare case-insensitively.
func Reassign(members []models.CrewMember, name string, role models.Role) error {
	for i := range members {
		if strings.EqualFold(members[i].Name, strings.TrimSpace(name)) {
			members[i].Role = role
			Sort(members)
			return nil
		}
	}
	return fmt.Errorf("crew member %q not found", name)
}

// ReviewQueue accumulates names that need a manual check, at most one per role.
type ReviewQueue struct {
	items []models.CrewReviewItem
}

// Add appends item unless an item for the same role is already queued.
func (q *ReviewQueue) Add(item models.CrewReviewItem) bool {
	for _, existing := range q.items {
		if existing.Role == item.Role {
			return false
		}
	}
	q.items = append(q.items, item)
	return true
}

// Items returns a copy of the queued items in arrival order.
func (q *ReviewQueue) Items() []models.CrewReviewItem {
	out := make([]models.CrewReviewItem, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued items.
func (q *ReviewQueue) Len() int { return len(q.items) }

// Reset empties the queue.
func (q *ReviewQueue) Reset() { q.items = nil }
