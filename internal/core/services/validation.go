package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// Ensure ValidationService implements the interface.
var _ driving.TicketValidator = (*ValidationService)(nil)

// DefaultSecondaryTypes mark add-on ticket types that are sold alongside a
// primary ticket and are left out of count validation.
var DefaultSecondaryTypes = []string{"ATHLETE 2", "TEAM MEMBER", "PHOTO PACKAGE"}

// ValidationService compares ticket counts from the event definition,
// per-type totals and a full scrape.
type ValidationService struct {
	source    driven.TicketSource
	fetcher   *PagedFetcher
	filter    *FilterPipeline
	secondary []string
}

// NewValidationService creates a validation service. The fetcher should use
// bulk pages. With no secondary types the defaults apply.
func NewValidationService(source driven.TicketSource, fetcher *PagedFetcher, filter *FilterPipeline, secondary ...string) *ValidationService {
	if filter == nil {
		filter = DefaultFilterPipeline()
	}
	if len(secondary) == 0 {
		secondary = DefaultSecondaryTypes
	}
	upper := make([]string, len(secondary))
	for i, s := range secondary {
		upper[i] = strings.ToUpper(s)
	}
	return &ValidationService{source: source, fetcher: fetcher, filter: filter, secondary: upper}
}

// IsSecondary reports whether typeName is an add-on type.
func (s *ValidationService) IsSecondary(typeName string) bool {
	name := strings.ToUpper(typeName)
	for _, marker := range s.secondary {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Validate runs the three-way comparison. Problems are collected in the
// report; an error is returned only when a source could not be read.
func (s *ValidationService) Validate(ctx context.Context, req driving.ValidationRequest) (*driving.ValidationReport, error) {
	if strings.TrimSpace(req.EventID) == "" {
		return nil, domain.ErrMissingScope
	}
	report := &driving.ValidationReport{EventID: req.EventID}

	event, err := s.source.GetEvent(ctx, req.EventID, true)
	if err != nil {
		return report, fmt.Errorf("get event: %w", err)
	}
	report.EventName = event.Name
	logger.Info("Validating %s (%d ticket types)", event.Name, len(event.TicketTypes))

	rows := make(map[string]*driving.TypeComparison)
	for _, tt := range event.TicketTypes {
		if s.IsSecondary(tt.Name) {
			continue
		}
		page, err := s.source.ListTickets(ctx, driven.TicketQuery{EventID: req.EventID, TicketTypeID: tt.ID, Top: 1})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Problems = append(report.Problems, fmt.Sprintf("%s: per-type total unavailable: %v", tt.Name, err))
			page = &domain.TicketPage{}
		}
		row, ok := rows[tt.Name]
		if !ok {
			row = &driving.TypeComparison{Name: tt.Name, OnEvent: true}
			rows[tt.Name] = row
		}
		row.Capacity += tt.Amount
		row.Reported += page.Total
	}

	scrape, err := s.fetcher.Fetch(ctx, req.EventID)
	if err != nil {
		return report, fmt.Errorf("scrape tickets: %w", err)
	}
	report.Scraped = len(scrape.Tickets)
	report.ExpectedTotal = scrape.ExpectedTotal
	report.CompletionRate = scrape.CompletionRate()
	if !scrape.Complete(s.fetcher.Config().CompletenessThreshold) {
		report.Problems = append(report.Problems, fmt.Sprintf("scrape incomplete: %d of %d tickets", report.Scraped, report.ExpectedTotal))
	}

	for _, t := range scrape.Tickets {
		if s.IsSecondary(t.TypeName()) {
			continue
		}
		row, ok := rows[t.TypeName()]
		if !ok {
			row = &driving.TypeComparison{Name: t.TypeName()}
			rows[t.TypeName()] = row
		}
		row.Scraped++
	}

	for _, row := range rows {
		report.Types = append(report.Types, *row)
	}
	slices.SortFunc(report.Types, func(a, b driving.TypeComparison) int {
		return strings.Compare(a.Name, b.Name)
	})
	for _, row := range report.Types {
		switch {
		case !row.OnEvent:
			report.Problems = append(report.Problems, fmt.Sprintf("%s: %d tickets with a type not defined on the event", row.Name, row.Scraped))
		case !row.Match():
			report.Problems = append(report.Problems, fmt.Sprintf("%s: reported %d, scraped %d", row.Name, row.Reported, row.Scraped))
		}
	}

	report.Eligible = len(s.filter.Apply(scrape.Tickets).Eligible)
	if req.ExpectedEligible > 0 && report.Eligible != req.ExpectedEligible {
		report.Problems = append(report.Problems, fmt.Sprintf("eligible tickets: expected %d, found %d", req.ExpectedEligible, report.Eligible))
	}

	if report.Passed() {
		logger.Info("Validation passed: %d tickets, %d eligible", report.Scraped, report.Eligible)
	} else {
		for _, p := range report.Problems {
			logger.Warn("Validation: %s", p)
		}
	}
	return report, nil
}
