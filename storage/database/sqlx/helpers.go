package sqlxrepos

// todo: + Masterminds/squirrel

import (
	"strings"

	"github.com/lib/pq"

	"github.com/trezcool/chuo/core"
)

// pqStringArray always yields a valid (possibly empty) postgres array literal.
func pqStringArray(vals []string) pq.StringArray {
	if vals == nil {
		vals = []string{}
	}
	return pq.StringArray(vals)
}

// queryBuilder accumulates AND-ed WHERE conditions with `?` bindvars;
// callers Rebind() the final query for the active driver.
type queryBuilder struct {
	conds []string
	args  []interface{}
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

func (qb *queryBuilder) where(cond string, args ...interface{}) {
	qb.conds = append(qb.conds, cond)
	qb.args = append(qb.args, args...)
}

func (qb *queryBuilder) clause() string {
	if len(qb.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(qb.conds, " AND ")
}

// setBuilder accumulates SET assignments for partial UPDATEs.
type setBuilder struct {
	cols []string
	args []interface{}
}

func newSetBuilder() *setBuilder {
	return &setBuilder{}
}

func (sb *setBuilder) set(col string, val interface{}) {
	sb.cols = append(sb.cols, col+" = ?")
	sb.args = append(sb.args, val)
}

func (sb *setBuilder) empty() bool {
	return len(sb.cols) == 0
}

func (sb *setBuilder) update(table, id string) (string, []interface{}) {
	query := "UPDATE " + table + " SET " + strings.Join(sb.cols, ", ") + " WHERE id = ?"
	return query, append(sb.args, id)
}

// orderBy renders an ORDER BY clause from the requested ordering.
// Fields come from query params; anything outside cols is dropped.
func orderBy(ordering []core.DBOrdering, cols ...string) string {
	var orderList []string
	for _, ord := range ordering {
		for _, col := range cols {
			if ord.Field == col {
				orderList = append(orderList, ord.String())
				break
			}
		}
	}
	if len(orderList) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
