package store

import (
	"time"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/WhiteShieldPT/docsearch-pt/internal/query"
)

// translatePlan lowers the storage-agnostic plan into a Bleve query
// tree. An empty plan becomes match-all.
func translatePlan(p query.Plan) bq.Query {
	if len(p.Must) == 0 && len(p.Should) == 0 {
		return bleve.NewMatchAllQuery()
	}

	boolean := bleve.NewBooleanQuery()
	for _, cl := range p.Must {
		boolean.AddMust(translateClause(cl))
	}
	if len(p.Should) > 0 {
		for _, cl := range p.Should {
			boolean.AddShould(translateClause(cl))
		}
		boolean.SetMinShould(float64(p.MinShould))
	}
	return boolean
}

func translateClause(cl query.Clause) bq.Query {
	switch cl.Kind {
	case query.ClauseTerm:
		q := bleve.NewTermQuery(cl.Text)
		q.SetField(cl.Field)
		return withBoost(q, cl.Boost)

	case query.ClausePrefix:
		q := bleve.NewPrefixQuery(cl.Text)
		q.SetField(cl.Field)
		return withBoost(q, cl.Boost)

	case query.ClausePhrase:
		q := bleve.NewMatchPhraseQuery(cl.Text)
		q.SetField(cl.Field)
		return withBoost(q, cl.Boost)

	case query.ClauseFuzzy:
		q := bleve.NewMatchQuery(cl.Text)
		q.SetField(cl.Field)
		q.SetFuzziness(1)
		return withBoost(q, cl.Boost)

	case query.ClauseWildcard:
		q := bleve.NewWildcardQuery(cl.Text)
		q.SetField(cl.Field)
		return withBoost(q, cl.Boost)

	case query.ClauseNumericRange:
		incl := true
		q := bleve.NewNumericRangeInclusiveQuery(cl.Min, cl.Max, &incl, &incl)
		q.SetField(cl.Field)
		return withBoost(q, cl.Boost)

	case query.ClauseDateRange:
		start, end := rangeBound(cl.Start, false), rangeBound(cl.End, true)
		q := bleve.NewDateRangeQuery(start, end)
		q.SetField(cl.Field)
		return withBoost(q, cl.Boost)

	default:
		q := bleve.NewMatchQuery(cl.Text)
		q.SetField(cl.Field)
		return withBoost(q, cl.Boost)
	}
}

// rangeBound parses an ISO date filter edge. End bounds extend to the
// end of the named day so "2024-12-31" includes that day's documents.
func rangeBound(iso string, isEnd bool) time.Time {
	if iso == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return time.Time{}
	}
	if isEnd {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}

func withBoost(q bq.BoostableQuery, boost float64) bq.Query {
	if boost > 0 {
		q.SetBoost(boost)
	}
	return q
}
