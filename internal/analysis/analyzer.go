// Package analysis compares a subject property against its active competitive set.
package analysis

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"compset/server/internal/aggregator"
	"compset/server/internal/errs"
	"compset/server/internal/filter"
	"compset/server/internal/geometry"
	"compset/server/internal/models"
)

// DefaultMarketTolerancePercent is the half-width of the "at market" band,
// in percent of the competitor mean rent.
const DefaultMarketTolerancePercent = 2.0

// PropertySource resolves property profiles and their unit inventory
type PropertySource interface {
	GetProperty(ctx context.Context, id int64) (*models.PropertyProfile, error)
	ListUnits(ctx context.Context, propertyID int64) ([]models.PropertyUnit, error)
}

// RelationshipLister resolves the active relationships of a portfolio
type RelationshipLister interface {
	ListActive(ctx context.Context, portfolioID int64) ([]models.CompetitiveRelationship, error)
}

type Request struct {
	SubjectID int64                 `json:"subjectId"`
	Criteria  models.FilterCriteria `json:"filterCriteria"`
	Mode      models.AnalysisMode   `json:"mode"`
}

// Analyzer holds no per-request state; Analyze may be called concurrently.
type Analyzer struct {
	properties    PropertySource
	relationships RelationshipLister
	logger        *logrus.Logger
	tolerance     float64
}

func NewAnalyzer(properties PropertySource, relationships RelationshipLister, tolerancePercent float64, logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if tolerancePercent < 0 {
		tolerancePercent = DefaultMarketTolerancePercent
	}
	return &Analyzer{
		properties:    properties,
		relationships: relationships,
		logger:        logger,
		tolerance:     tolerancePercent,
	}
}

// Analyze runs the filtered comparison of the subject against the properties
// it has active relationships with. Storage errors are returned wrapped but
// otherwise unchanged.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*models.FilteredAnalysis, error) {
	if req.SubjectID <= 0 {
		return nil, errs.Invalid("subjectId", "must be a positive id")
	}
	mode, err := resolveMode(req.Mode)
	if err != nil {
		return nil, err
	}

	criteria, err := filter.Normalize(req.Criteria)
	if err != nil {
		return nil, err
	}

	subject, err := a.properties.GetProperty(ctx, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subject: %w", err)
	}

	subjectAnalysis, err := a.analyzeProperty(ctx, subject, criteria)
	if err != nil {
		return nil, err
	}

	competitors, err := a.resolveCompetitors(ctx, subject, mode)
	if err != nil {
		return nil, err
	}

	competitorAnalyses := make([]models.PropertyAnalysis, 0, len(competitors))
	for i := range competitors {
		pa, err := a.analyzeProperty(ctx, &competitors[i], criteria)
		if err != nil {
			return nil, err
		}
		pa.DistanceKm = geometry.DistanceKm(subject, &competitors[i])
		competitorAnalyses = append(competitorAnalyses, *pa)
	}

	result := &models.FilteredAnalysis{
		Mode:           mode,
		Criteria:       criteria,
		Subject:        *subjectAnalysis,
		Competitors:    competitorAnalyses,
		MarketInsights: ComputeInsights(*subjectAnalysis, competitorAnalyses, a.tolerance),
	}

	a.logger.WithFields(logrus.Fields{
		"subject_id":        subject.ID,
		"mode":              mode,
		"competitors":       len(competitorAnalyses),
		"subject_vs_market": result.MarketInsights.SubjectVsMarket,
	}).Debug("Computed filtered analysis")

	return result, nil
}

// CompetitiveSet resolves the subject and the properties it is compared
// against in the given mode, without loading any units.
func (a *Analyzer) CompetitiveSet(ctx context.Context, subjectID int64, mode models.AnalysisMode) (*models.PropertyProfile, []models.PropertyProfile, error) {
	if subjectID <= 0 {
		return nil, nil, errs.Invalid("subjectId", "must be a positive id")
	}
	mode, err := resolveMode(mode)
	if err != nil {
		return nil, nil, err
	}

	subject, err := a.properties.GetProperty(ctx, subjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve subject: %w", err)
	}

	competitors, err := a.resolveCompetitors(ctx, subject, mode)
	if err != nil {
		return nil, nil, err
	}
	return subject, competitors, nil
}

// resolveMode defaults an empty mode to external
func resolveMode(mode models.AnalysisMode) (models.AnalysisMode, error) {
	if mode == "" {
		return models.ModeExternal, nil
	}
	if !mode.Valid() {
		return "", errs.Invalid("mode", "must be external or internal")
	}
	return mode, nil
}

func (a *Analyzer) analyzeProperty(ctx context.Context, p *models.PropertyProfile, criteria models.FilterCriteria) (*models.PropertyAnalysis, error) {
	units, err := a.properties.ListUnits(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load units of property %d: %w", p.ID, err)
	}

	metrics := aggregator.Aggregate(units, criteria)
	return &models.PropertyAnalysis{
		PropertyID:  p.ID,
		Name:        p.Name,
		ProfileType: p.ProfileType,
		UnitTypes:   metrics,
		Summary:     aggregator.Summarize(metrics),
	}, nil
}

// resolveCompetitors returns the counterparts of the subject's active
// relationships whose profile type fits the mode, ordered by id. The subject
// itself is never part of the result.
func (a *Analyzer) resolveCompetitors(ctx context.Context, subject *models.PropertyProfile, mode models.AnalysisMode) ([]models.PropertyProfile, error) {
	relationships, err := a.relationships.ListActive(ctx, subject.PortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}

	wanted := models.ProfileCompetitor
	if mode == models.ModeInternal {
		wanted = models.ProfileSubject
	}

	seen := make(map[int64]bool)
	competitors := make([]models.PropertyProfile, 0)
	for _, rel := range relationships {
		if !rel.IsActive {
			continue
		}
		otherID, ok := rel.Other(subject.ID)
		if !ok || otherID == subject.ID || seen[otherID] {
			continue
		}
		seen[otherID] = true

		other, err := a.properties.GetProperty(ctx, otherID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve competitor %d: %w", otherID, err)
		}
		if other.ProfileType != wanted {
			continue
		}
		competitors = append(competitors, *other)
	}

	sort.Slice(competitors, func(i, j int) bool { return competitors[i].ID < competitors[j].ID })
	return competitors, nil
}
