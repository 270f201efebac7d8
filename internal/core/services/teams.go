package services

import (
	"strings"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

// DefaultTeamIndicators mark ticket types bought as a team unit.
var DefaultTeamIndicators = []string{"DOUBLES", "RELAY", "ATHLETE 2", "TEAM MEMBER"}

// TeamGrouper keeps tickets of one team purchase together.
// A team group is every team ticket sharing the exact same raw createdAt
// value, even when individual tickets with that timestamp sit between them;
// any other ticket is a group of one.
type TeamGrouper struct {
	indicators []string
}

// NewTeamGrouper creates a grouper. With no indicators the defaults apply.
func NewTeamGrouper(indicators ...string) *TeamGrouper {
	if len(indicators) == 0 {
		indicators = DefaultTeamIndicators
	}
	upper := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		if ind = strings.TrimSpace(ind); ind != "" {
			upper = append(upper, strings.ToUpper(ind))
		}
	}
	return &TeamGrouper{indicators: upper}
}

// IsTeamTicket reports whether typeName names a team ticket type.
func (g *TeamGrouper) IsTeamTicket(typeName string) bool {
	name := strings.ToUpper(typeName)
	for _, ind := range g.indicators {
		if strings.Contains(name, ind) {
			return true
		}
	}
	return false
}

// GroupAt returns the group of the ticket at index start. For a team
// ticket that is every team ticket from start onwards with the same raw
// createdAt; individual tickets inside that run do not end the group.
func (g *TeamGrouper) GroupAt(tickets []domain.Ticket, start int) []domain.Ticket {
	idx := g.groupIndices(tickets, start)
	if idx == nil {
		return nil
	}
	group := make([]domain.Ticket, len(idx))
	for i, j := range idx {
		group[i] = tickets[j]
	}
	return group
}

func (g *TeamGrouper) groupIndices(tickets []domain.Ticket, start int) []int {
	if start < 0 || start >= len(tickets) {
		return nil
	}
	first := tickets[start]
	if !g.IsTeamTicket(first.TypeName()) {
		return []int{start}
	}

	idx := []int{start}
	for j := start + 1; j < len(tickets) && tickets[j].CreatedAtRaw() == first.CreatedAtRaw(); j++ {
		if g.IsTeamTicket(tickets[j].TypeName()) {
			idx = append(idx, j)
		}
	}
	return idx
}

// SelectFirst returns at most n tickets from start without splitting a
// group, in their original order. Selection ends at the first group that
// does not fit.
func (g *TeamGrouper) SelectFirst(tickets []domain.Ticket, start, n int) []domain.Ticket {
	taken := make(map[int]bool)
	count := 0
	for i := max(start, 0); i < len(tickets) && count < n; i++ {
		if taken[i] {
			continue
		}
		group := g.groupIndices(tickets, i)
		if count+len(group) > n {
			break
		}
		for _, j := range group {
			taken[j] = true
		}
		count += len(group)
	}

	selected := make([]domain.Ticket, 0, count)
	for i := max(start, 0); i < len(tickets) && len(selected) < count; i++ {
		if taken[i] {
			selected = append(selected, tickets[i])
		}
	}
	return selected
}
