package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Op is a filter comparison.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpGt
	OpLte
	OpIn
)

// Filter compares a column with a value. Column names come from code, never from request input.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }
func Gt(column string, value any) Filter  { return Filter{Column: column, Op: OpGt, Value: value} }
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// In matches any of values. An empty list matches nothing.
func In[T any](column string, values []T) Filter {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Filter{Column: column, Op: OpIn, Value: out}
}

// Order sorts by a column.
type Order struct {
	Column string
	Desc   bool
}

// Query is a conjunction of filters with optional ordering and limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
}

func (f Filter) expression() clause.Expression {
	col := clause.Column{Name: f.Column}
	switch f.Op {
	case OpNeq:
		return clause.Neq{Column: col, Value: f.Value}
	case OpGt:
		return clause.Gt{Column: col, Value: f.Value}
	case OpLte:
		return clause.Lte{Column: col, Value: f.Value}
	case OpIn:
		return clause.IN{Column: col, Values: f.Value.([]any)}
	default:
		return clause.Eq{Column: col, Value: f.Value}
	}
}

func (q Query) apply(db *gorm.DB) *gorm.DB {
	if len(q.Filters) > 0 {
		exprs := make([]clause.Expression, 0, len(q.Filters))
		for _, f := range q.Filters {
			exprs = append(exprs, f.expression())
		}
		db = db.Clauses(clause.Where{Exprs: exprs})
	}
	for _, o := range q.Order {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}
