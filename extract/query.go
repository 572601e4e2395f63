package extract

import (
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/parser"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
	tidbparser "github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/model"
	_ "github.com/pingcap/tidb/types/parser_driver"
)

// ErrInvalidFilter marks filters that are not a single boolean predicate.
var ErrInvalidFilter = errors.New("invalid filter")

func invalidFilterf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidFilter)
}

// PGFilter parses a PostgreSQL or CockroachDB predicate. Subqueries are
// rejected.
func PGFilter(filter string) (tree.Expr, error) {
	expr, err := parser.ParseExpr(filter)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "error parsing filter %q", filter), ErrInvalidFilter)
	}
	v := &pgSubqueryFinder{}
	tree.WalkExpr(v, expr)
	if v.found {
		return nil, invalidFilterf("filter %q must not contain subqueries", filter)
	}
	return expr, nil
}

type pgSubqueryFinder struct {
	found bool
}

var _ tree.Visitor = (*pgSubqueryFinder)(nil)

func (v *pgSubqueryFinder) VisitPre(expr tree.Expr) (recurse bool, newExpr tree.Expr) {
	if _, ok := expr.(*tree.Subquery); ok {
		v.found = true
		return false, expr
	}
	return true, expr
}

func (v *pgSubqueryFinder) VisitPost(expr tree.Expr) tree.Expr {
	return expr
}

// PGSelect renders the SELECT statement for q. Identifiers are quoted as
// needed.
func PGSelect(q Query) (string, error) {
	if q.Table.Table == "" {
		return "", errors.New("table name must be set")
	}
	tn := tree.MakeTableNameFromPrefix(
		tree.ObjectNamePrefix{
			CatalogName:     tree.Name(q.Table.Database),
			ExplicitCatalog: q.Table.Database != "" && q.Table.Schema != "",
			SchemaName:      tree.Name(q.Table.Schema),
			ExplicitSchema:  q.Table.Schema != "",
		},
		tree.Name(q.Table.Table),
	)
	selectClause := &tree.SelectClause{
		From: tree.From{
			Tables: tree.TableExprs{&tn},
		},
	}
	if len(q.Columns) == 0 {
		selectClause.Exprs = tree.SelectExprs{{Expr: tree.StarExpr()}}
	}
	for _, col := range q.Columns {
		selectClause.Exprs = append(
			selectClause.Exprs,
			tree.SelectExpr{
				Expr: tree.NewUnresolvedName(col),
			},
		)
	}
	if strings.TrimSpace(q.Filter) != "" {
		expr, err := PGFilter(q.Filter)
		if err != nil {
			return "", err
		}
		selectClause.Where = &tree.Where{
			Type: tree.AstWhere,
			Expr: expr,
		}
	}
	f := tree.NewFmtCtx(tree.FmtParsableNumerics)
	f.FormatNode(&tree.Select{Select: selectClause})
	return f.CloseAndGetString(), nil
}

// MySQLFilter parses a MySQL predicate. The predicate is parsed as the WHERE
// clause of a template statement; anything that changes the statement beyond
// its WHERE clause (statement separators, unions, ordering, limits, locking)
// or contains a subquery is rejected.
func MySQLFilter(filter string) (ast.ExprNode, error) {
	const tmpl = "SELECT 1 FROM t WHERE "
	p := tidbparser.New()
	stmts, _, err := p.Parse(tmpl+filter, "", "")
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "error parsing filter %q", filter), ErrInvalidFilter)
	}
	if len(stmts) != 1 {
		return nil, invalidFilterf("filter %q must be a single predicate", filter)
	}
	sel, ok := stmts[0].(*ast.SelectStmt)
	if !ok || sel.Where == nil {
		return nil, invalidFilterf("filter %q must be a single predicate", filter)
	}
	where := sel.Where

	v := &mysqlSubqueryFinder{}
	where.Accept(v)
	if v.found {
		return nil, invalidFilterf("filter %q must not contain subqueries", filter)
	}

	// Anything beyond the WHERE clause shows up as a difference against the
	// bare template.
	baseline, _, err := p.Parse(tmpl+"1", "", "")
	if err != nil {
		return nil, errors.Wrap(err, "error parsing filter template")
	}
	sel.Where = baseline[0].(*ast.SelectStmt).Where
	got, err := restoreMySQL(sel)
	if err != nil {
		return nil, err
	}
	want, err := restoreMySQL(baseline[0])
	if err != nil {
		return nil, err
	}
	if got != want {
		return nil, invalidFilterf("filter %q must be a single predicate", filter)
	}
	return where, nil
}

type mysqlSubqueryFinder struct {
	found bool
}

var _ ast.Visitor = (*mysqlSubqueryFinder)(nil)

func (v *mysqlSubqueryFinder) Enter(n ast.Node) (ast.Node, bool) {
	if _, ok := n.(*ast.SubqueryExpr); ok {
		v.found = true
		return n, true
	}
	return n, false
}

func (v *mysqlSubqueryFinder) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

func mysqlColumn(name string) *ast.ColumnNameExpr {
	return &ast.ColumnNameExpr{
		Name: &ast.ColumnName{
			Name: model.NewCIStr(name),
		},
	}
}

// MySQLSelect renders the SELECT statement for q. MySQL has no schemas
// within a database, so at most two name parts are accepted.
func MySQLSelect(q Query) (string, error) {
	if q.Table.Table == "" {
		return "", errors.New("table name must be set")
	}
	if q.Table.Database != "" && q.Table.Schema != "" {
		return "", errors.Newf("MySQL table name %s must have at most two parts", q.Table.SafeString())
	}
	db := q.Table.Schema
	if db == "" {
		db = q.Table.Database
	}
	fields := &ast.FieldList{}
	if len(q.Columns) == 0 {
		fields.Fields = []*ast.SelectField{{WildCard: &ast.WildCardField{}}}
	}
	for _, col := range q.Columns {
		fields.Fields = append(fields.Fields, &ast.SelectField{Expr: mysqlColumn(col)})
	}
	stmt := &ast.SelectStmt{
		SelectStmtOpts: &ast.SelectStmtOpts{
			SQLCache: true,
		},
		From: &ast.TableRefsClause{
			TableRefs: &ast.Join{
				Left: &ast.TableSource{
					Source: &ast.TableName{
						Schema: model.NewCIStr(db),
						Name:   model.NewCIStr(q.Table.Table),
					},
				},
			},
		},
		Fields: fields,
		Kind:   ast.SelectStmtKindSelect,
	}
	if strings.TrimSpace(q.Filter) != "" {
		where, err := MySQLFilter(q.Filter)
		if err != nil {
			return "", err
		}
		stmt.Where = where
	}
	return restoreMySQL(stmt)
}

func restoreMySQL(n ast.Node) (string, error) {
	var sb strings.Builder
	if err := n.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return "", errors.Wrap(err, "error generating MySQL statement")
	}
	return sb.String(), nil
}

func sqlServerIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// SQLServerSelect renders the T-SQL SELECT statement for q. The filter is
// validated as a single predicate without subqueries and inlined as written.
func SQLServerSelect(q Query) (string, error) {
	if q.Table.Table == "" {
		return "", errors.New("table name must be set")
	}
	var parts []string
	for _, p := range q.Table.Parts() {
		parts = append(parts, sqlServerIdent(p))
	}
	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, col := range q.Columns {
			quoted[i] = sqlServerIdent(col)
		}
		cols = strings.Join(quoted, ", ")
	}
	stmt := "SELECT " + cols + " FROM " + strings.Join(parts, ".")
	if filter := strings.TrimSpace(q.Filter); filter != "" {
		if _, err := PGFilter(filter); err != nil {
			return "", err
		}
		stmt += " WHERE (" + filter + "\n)"
	}
	return stmt, nil
}
