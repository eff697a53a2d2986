package models

import "time"

type RelationshipType string

const (
	DirectCompetitor   RelationshipType = "direct_competitor"
	IndirectCompetitor RelationshipType = "indirect_competitor"
	MarketLeader       RelationshipType = "market_leader"
	MarketFollower     RelationshipType = "market_follower"
)

// Valid reports whether t is a known relationship type
func (t RelationshipType) Valid() bool {
	switch t {
	case DirectCompetitor, IndirectCompetitor, MarketLeader, MarketFollower:
		return true
	}
	return false
}

// CompetitiveRelationship is an unordered edge between two properties.
// PropertyAID is always the smaller id of the pair.
type CompetitiveRelationship struct {
	ID               string           `json:"id"`
	PortfolioID      int64            `json:"portfolioId"`
	PropertyAID      int64            `json:"propertyAId"`
	PropertyBID      int64            `json:"propertyBId"`
	RelationshipType RelationshipType `json:"relationshipType"`
	IsActive         bool             `json:"isActive"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// Other returns the endpoint of the edge that is not id, or false when
// id is not part of the edge.
func (r *CompetitiveRelationship) Other(id int64) (int64, bool) {
	switch id {
	case r.PropertyAID:
		return r.PropertyBID, true
	case r.PropertyBID:
		return r.PropertyAID, true
	}
	return 0, false
}

// PairKey is the canonical, order-independent key of a property pair
type PairKey struct {
	Low  int64
	High int64
}

// NewPairKey orders a and b so that (a,b) and (b,a) produce the same key
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}
