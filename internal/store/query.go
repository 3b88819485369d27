package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Op is a comparison operator usable in a Filter
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "<>"
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Filter is a single column predicate
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq is shorthand for an equality filter
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Order sorts by a column
type Order struct {
	Column string
	Desc   bool
}

// Query describes a table read: columns, predicates, ordering and limit.
// Predicates are ANDed together.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

func (q Query) where(args []any) (string, []any, error) {
	if len(q.Filters) == 0 {
		return "", args, nil
	}
	parts := make([]string, 0, len(q.Filters))
	for _, f := range q.Filters {
		if err := checkIdent("column", f.Column); err != nil {
			return "", nil, err
		}
		switch f.Op {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
		}
		args = append(args, f.Value)
		parts = append(parts, f.Column+" "+string(f.Op)+" $"+strconv.Itoa(len(args)))
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// SelectSQL compiles the query into a SELECT statement with positional arguments.
func (q Query) SelectSQL() (string, []any, error) {
	if err := checkIdent("table", q.Table); err != nil {
		return "", nil, err
	}
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("query on %s selects no columns", q.Table)
	}
	for _, c := range q.Columns {
		if err := checkIdent("column", c); err != nil {
			return "", nil, err
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	where, args, err := q.where(nil)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)

	if len(q.Order) > 0 {
		orders := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if err := checkIdent("column", o.Column); err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders = append(orders, o.Column+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	return b.String(), args, nil
}

// DeleteSQL compiles the query's table and filters into a DELETE statement.
// A delete without filters is refused.
func (q Query) DeleteSQL() (string, []any, error) {
	if err := checkIdent("table", q.Table); err != nil {
		return "", nil, err
	}
	if len(q.Filters) == 0 {
		return "", nil, fmt.Errorf("refusing unfiltered delete on %s", q.Table)
	}
	where, args, err := q.where(nil)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + q.Table + where, args, nil
}
